package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harness/depextract/util/common/errors"
	"gopkg.in/ini.v1"
)

// SetProperty records a tool-supplied property. Manifest and execution
// properties take precedence over it.
func (p *Project) SetProperty(key, value string) {
	p.customProperties[key] = value
}

// SetExecutionProperty records a property given on the command line. It
// overrides every other source.
func (p *Project) SetExecutionProperty(key, value string) {
	p.executionOverride[key] = value
}

// Property looks key up in execution, manifest and custom properties, in
// that order.
func (p *Project) Property(key string) (string, bool) {
	for _, props := range []map[string]string{p.executionOverride, p.properties, p.customProperties} {
		if v, ok := props[key]; ok {
			return v, true
		}
	}
	return "", false
}

// PropertyBool reports whether key is set to "true", ignoring case.
func (p *Project) PropertyBool(key string) bool {
	v, ok := p.Property(key)
	return ok && strings.EqualFold(v, "true")
}

// PropertyPath returns key's value as a path without a trailing separator.
func (p *Project) PropertyPath(key string) (string, bool) {
	v, ok := p.Property(key)
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimSuffix(v, "/"), string(filepath.Separator)), true
}

// Properties merges every property source. Manifest properties overwrite
// custom ones, execution properties overwrite both.
func (p *Project) Properties() map[string]string {
	merged := make(map[string]string, len(p.customProperties)+len(p.properties)+len(p.executionOverride))
	for _, props := range []map[string]string{p.customProperties, p.properties, p.executionOverride} {
		for k, v := range props {
			merged[k] = v
		}
	}
	return merged
}

// LoadProperties reads a key=value properties file. A missing file yields
// nil and no error.
func LoadProperties(file string) (map[string]string, error) {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil, nil
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:       true,
		UnescapeValueDoubleQuotes: true,
	}, file)
	if err != nil {
		return nil, errors.NewFileError(file, "load_properties", err)
	}
	return cfg.Section(ini.DefaultSection).KeysHash(), nil
}

// StoreProperties writes props to file in key order.
func StoreProperties(props map[string]string, file string) error {
	cfg := ini.Empty()
	sec := cfg.Section(ini.DefaultSection)

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := sec.NewKey(k, props[k]); err != nil {
			return errors.NewValidationError("property", err.Error())
		}
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errors.NewFileError(file, "mkdir", err)
	}
	if err := cfg.SaveTo(file); err != nil {
		return errors.NewFileError(file, "store_properties", err)
	}
	return nil
}
