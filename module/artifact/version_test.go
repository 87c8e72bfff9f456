package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.0.0", 0},
		{"1.0", "2.0", -1},
		{"1.10", "1.9", 1},
		{"2.0-beta-3", "2.0", -1},
		{"2.0-alpha", "2.0-beta", -1},
		{"1.0.0.1", "1.0.0", 1},
		{"1.0.0.1", "1.0.0.2", -1},
		{"1.0.0.0-rc", "1.0.0.0", -1},
		{"1.0.0.0-sp", "1.0.0.0", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
			assert.Equal(t, -tt.want, CompareVersions(tt.b, tt.a))
		})
	}
}

func TestParseVersionRange(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		pinned   string
		contains []string
		excludes []string
		wantErr  bool
	}{
		{name: "soft", spec: "1.0", pinned: "1.0", contains: []string{"1.0"}, excludes: []string{"1.1"}},
		{name: "hard", spec: "[1.0]", pinned: "1.0", contains: []string{"1.0"}, excludes: []string{"1.0.1"}},
		{
			name:     "bounded",
			spec:     "[1.0,2.0)",
			contains: []string{"1.0", "1.5", "1.9.9"},
			excludes: []string{"0.9", "2.0", "2.1"},
		},
		{name: "open lower", spec: "(,1.0]", contains: []string{"0.1", "1.0"}, excludes: []string{"1.0.1"}},
		{name: "open upper", spec: "[1.5,)", contains: []string{"1.5", "9.0"}, excludes: []string{"1.4"}},
		{
			name:     "union",
			spec:     "(,1.0],[1.2,)",
			contains: []string{"0.5", "1.0", "1.2", "3.0"},
			excludes: []string{"1.1"},
		},
		{name: "empty", spec: "", wantErr: true},
		{name: "unclosed", spec: "[1.0,2.0", wantErr: true},
		{name: "inverted", spec: "[2.0,1.0]", wantErr: true},
		{name: "open bound with bracket", spec: "[,1.0]", wantErr: true},
		{name: "single version in parens", spec: "(1.0)", wantErr: true},
		{name: "stray bracket", spec: "1.0]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vr, err := ParseVersionRange(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			pinned, ok := vr.Pinned()
			if tt.pinned != "" {
				assert.True(t, ok)
				assert.Equal(t, tt.pinned, pinned)
			} else {
				assert.False(t, ok)
			}
			for _, v := range tt.contains {
				assert.True(t, vr.Contains(v), "%s should satisfy %s", v, tt.spec)
			}
			for _, v := range tt.excludes {
				assert.False(t, vr.Contains(v), "%s should not satisfy %s", v, tt.spec)
			}
		})
	}
}

func TestVersionRangeSelectPicksHighest(t *testing.T) {
	vr, err := ParseVersionRange("[1.0,2.0)")
	require.NoError(t, err)

	v, ok := vr.Select([]string{"0.9", "1.0", "1.10", "1.9", "2.0", "2.1"})
	assert.True(t, ok)
	assert.Equal(t, "1.10", v)

	_, ok = vr.Select([]string{"0.1", "3.0"})
	assert.False(t, ok)
}

func TestSortVersions(t *testing.T) {
	vs := []string{"1.10", "1.2", "1.0-beta", "1.0"}
	SortVersions(vs)
	assert.Equal(t, []string{"1.0-beta", "1.0", "1.2", "1.10"}, vs)
}
