package artifact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/harness/depextract/util/common/errors"
)

// Restriction is one interval of a version range. Empty bounds are open.
type Restriction struct {
	Lower          string
	LowerInclusive bool
	Upper          string
	UpperInclusive bool
}

// Contains reports whether v lies inside the interval.
func (r Restriction) Contains(v string) bool {
	if r.Lower != "" {
		c := CompareVersions(v, r.Lower)
		if c < 0 || (c == 0 && !r.LowerInclusive) {
			return false
		}
	}
	if r.Upper != "" {
		c := CompareVersions(v, r.Upper)
		if c > 0 || (c == 0 && !r.UpperInclusive) {
			return false
		}
	}
	return true
}

// VersionRange is a parsed Maven version specification. A soft version such
// as "1.0" has a recommended version and no restrictions; everything else is
// a union of restrictions.
type VersionRange struct {
	raw          string
	recommended  string
	restrictions []Restriction
}

// ParseVersionRange parses a soft version ("1.0"), a hard version ("[1.0]"),
// an interval ("[1.0,2.0)", "(,1.0]", "[1.5,)") or a comma separated union
// of intervals ("(,1.0],[1.2,)").
func ParseVersionRange(spec string) (VersionRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return VersionRange{}, errors.NewValidationError("version", "version cannot be empty")
	}
	if !strings.ContainsAny(spec, "[(") {
		if strings.ContainsAny(spec, "])") || strings.Contains(spec, ",") {
			return VersionRange{}, invalidRange(spec, "unbalanced brackets")
		}
		return VersionRange{raw: spec, recommended: spec}, nil
	}

	vr := VersionRange{raw: spec}
	rest := spec
	for rest != "" {
		open := rest[0]
		if open != '[' && open != '(' {
			return VersionRange{}, invalidRange(spec, "expected [ or (")
		}
		end := strings.IndexAny(rest, "])")
		if end < 0 {
			return VersionRange{}, invalidRange(spec, "missing closing bracket")
		}
		r, err := parseRestriction(spec, open, rest[1:end], rest[end])
		if err != nil {
			return VersionRange{}, err
		}
		vr.restrictions = append(vr.restrictions, r)

		rest = strings.TrimSpace(rest[end+1:])
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return VersionRange{}, invalidRange(spec, "restrictions must be separated by ,")
		}
		rest = strings.TrimSpace(rest[1:])
		if rest == "" {
			return VersionRange{}, invalidRange(spec, "trailing ,")
		}
	}
	return vr, nil
}

func parseRestriction(spec string, open byte, body string, close byte) (Restriction, error) {
	lowerInc, upperInc := open == '[', close == ']'
	bounds := strings.Split(body, ",")
	switch len(bounds) {
	case 1:
		v := strings.TrimSpace(bounds[0])
		if !lowerInc || !upperInc || v == "" {
			return Restriction{}, invalidRange(spec, "a single version must be enclosed in []")
		}
		return Restriction{Lower: v, LowerInclusive: true, Upper: v, UpperInclusive: true}, nil
	case 2:
		r := Restriction{
			Lower:          strings.TrimSpace(bounds[0]),
			LowerInclusive: lowerInc,
			Upper:          strings.TrimSpace(bounds[1]),
			UpperInclusive: upperInc,
		}
		if r.Lower != "" && r.Upper != "" && CompareVersions(r.Lower, r.Upper) > 0 {
			return Restriction{}, invalidRange(spec, "lower bound is greater than upper bound")
		}
		if (r.Lower == "" && r.LowerInclusive) || (r.Upper == "" && r.UpperInclusive) {
			return Restriction{}, invalidRange(spec, "an open bound must use ( or )")
		}
		return r, nil
	}
	return Restriction{}, invalidRange(spec, "too many bounds")
}

func invalidRange(spec, reason string) error {
	return errors.NewValidationError("version", fmt.Sprintf("invalid version range %q: %s", spec, reason))
}

func (vr VersionRange) String() string { return vr.raw }

// Pinned returns the single version this range collapses to without asking
// any repository: the recommended version of a soft spec, or the version of a
// hard "[x]" spec.
func (vr VersionRange) Pinned() (string, bool) {
	if vr.recommended != "" {
		return vr.recommended, true
	}
	if len(vr.restrictions) == 1 {
		r := vr.restrictions[0]
		if r.LowerInclusive && r.UpperInclusive && r.Lower != "" && r.Lower == r.Upper {
			return r.Lower, true
		}
	}
	return "", false
}

// Contains reports whether v satisfies the range. A soft version is
// satisfied only by itself.
func (vr VersionRange) Contains(v string) bool {
	if vr.recommended != "" {
		return CompareVersions(v, vr.recommended) == 0
	}
	for _, r := range vr.restrictions {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// Select picks the highest of versions that satisfies the range.
func (vr VersionRange) Select(versions []string) (string, bool) {
	var best string
	for _, v := range versions {
		if !vr.Contains(v) {
			continue
		}
		if best == "" || CompareVersions(v, best) > 0 {
			best = v
		}
	}
	return best, best != ""
}

// SortVersions orders versions ascending, in place.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
}

// CompareVersions returns -1, 0 or 1. Semantic versions are compared with
// semver rules; anything semver cannot parse (four numeric segments, Maven
// qualifiers like "2.0-beta-3" mixed with dotted builds) falls back to a
// segment by segment comparison.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := semver.StrictNewVersion(normalizeSemver(a))
	vb, errB := semver.StrictNewVersion(normalizeSemver(b))
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareSegments(a, b)
}

// normalizeSemver pads "1" and "1.2" to three numeric segments so that the
// common Maven spellings are accepted by the strict parser.
func normalizeSemver(v string) string {
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	switch strings.Count(core, ".") {
	case 0:
		core += ".0.0"
	case 1:
		core += ".0"
	}
	return core + suffix
}

var qualifierRank = map[string]int{
	"alpha": 1, "a": 1,
	"beta": 2, "b": 2,
	"milestone": 3, "m": 3,
	"rc": 4, "cr": 4,
	"snapshot": 5,
	"": 6, "ga": 6, "final": 6, "release": 6,
	"sp": 7,
}

func compareSegments(a, b string) int {
	sa, sb := splitSegments(a), splitSegments(b)
	n := len(sa)
	if len(sb) > n {
		n = len(sb)
	}
	for i := 0; i < n; i++ {
		var x, y string
		if i < len(sa) {
			x = sa[i]
		}
		if i < len(sb) {
			y = sb[i]
		}
		if c := compareSegment(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(x, y string) int {
	nx, errX := strconv.Atoi(x)
	ny, errY := strconv.Atoi(y)
	xNum, yNum := errX == nil, errY == nil
	if x == "" {
		nx, xNum = 0, !(y != "" && !yNum)
	}
	if y == "" {
		ny, yNum = 0, !(x != "" && !xNum)
	}

	switch {
	case xNum && yNum:
		return cmpInt(nx, ny)
	case xNum:
		// a number sorts after any qualifier
		return 1
	case yNum:
		return -1
	}

	rx, okX := qualifierRank[strings.ToLower(x)]
	ry, okY := qualifierRank[strings.ToLower(y)]
	switch {
	case okX && okY:
		return cmpInt(rx, ry)
	case okX:
		return -1
	case okY:
		return 1
	}
	return strings.Compare(strings.ToLower(x), strings.ToLower(y))
}

func splitSegments(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' || r == '_' })
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
