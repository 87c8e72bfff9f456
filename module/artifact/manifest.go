package artifact

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/harness/depextract/util/common/errors"
)

const pomNamespace = "http://maven.apache.org/POM/4.0.0"

// EmbeddedManifestPaths returns the locations, relative to an extracted
// artifact's root, where its own manifest may live, in lookup order.
func EmbeddedManifestPaths(groupID, artifactID string) []string {
	return []string{
		"pom.xml",
		path.Join("META-INF", "maven", groupID, artifactID, "pom.xml"),
	}
}

// Manifest is the subset of a project object model needed to walk a
// dependency tree and to publish install metadata.
type Manifest struct {
	GroupID      string
	ArtifactID   string
	Version      string
	Packaging    string
	Name         string
	Description  string
	Parent       *Coordinates
	Properties   map[string]string
	Dependencies []Descriptor
	// Managed holds <dependencyManagement> entries: the manifest's own
	// first, then those inherited from its parents.
	Managed []Descriptor

	declared []pomDependency
	managed  []pomDependency
}

// Coordinates of the artifact the manifest describes.
func (m *Manifest) Coordinates() Coordinates {
	t := m.Packaging
	if t == "" {
		t = DefaultType
	}
	return Coordinates{GroupID: m.GroupID, ArtifactID: m.ArtifactID, Version: m.Version, Type: t}
}

// ManifestFor builds a minimal manifest for coordinates that have none.
func ManifestFor(c Coordinates) *Manifest {
	return &Manifest{
		GroupID:    c.GroupID,
		ArtifactID: c.ArtifactID,
		Version:    c.Version,
		Packaging:  c.Type,
	}
}

type pomXML struct {
	XMLName      xml.Name        `xml:"project"`
	Xmlns        string          `xml:"xmlns,attr,omitempty"`
	ModelVersion string          `xml:"modelVersion,omitempty"`
	Parent       *pomParent      `xml:"parent,omitempty"`
	GroupID      string          `xml:"groupId,omitempty"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version,omitempty"`
	Packaging    string          `xml:"packaging,omitempty"`
	Name         string          `xml:"name,omitempty"`
	Description  string          `xml:"description,omitempty"`
	Properties   pomProperties   `xml:"properties,omitempty"`
	Dependencies []pomDependency `xml:"dependencies>dependency,omitempty"`
	Management   []pomDependency `xml:"dependencyManagement>dependencies>dependency,omitempty"`
}

type pomParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version,omitempty"`
	Type       string `xml:"type,omitempty"`
	Classifier string `xml:"classifier,omitempty"`
	Scope      string `xml:"scope,omitempty"`
	Optional   string `xml:"optional,omitempty"`
}

// pomProperties keeps <properties> children in document order.
type pomProperties struct {
	Entries []pomProperty
}

type pomProperty struct {
	Key   string
	Value string
}

func (p *pomProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			p.Entries = append(p.Entries, pomProperty{Key: t.Name.Local, Value: strings.TrimSpace(v)})
		case xml.EndElement:
			return nil
		}
	}
}

func (p pomProperties) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(p.Entries) == 0 {
		return nil
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, entry := range p.Entries {
		if err := e.EncodeElement(entry.Value, xml.StartElement{Name: xml.Name{Local: entry.Key}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// ParseManifest decodes a POM. groupId and version are inherited from the
// parent when absent, ${...} references to project coordinates and declared
// properties are expanded, and dependencies without a version take the one
// from <dependencyManagement>.
//
// A manifest without a parent must leave no dependency version open. With a
// parent, open versions stay empty (or keep their unexpanded reference) until
// Inherit supplies what the parent chain declares.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m, err := decodeManifest(r)
	if err != nil {
		return nil, err
	}
	if m.Parent == nil {
		if err := m.CheckVersions(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	var pom pomXML
	if err := xml.NewDecoder(r).Decode(&pom); err != nil {
		return nil, fmt.Errorf("invalid XML or not a Maven POM: %w", err)
	}

	m := &Manifest{
		GroupID:     strings.TrimSpace(pom.GroupID),
		ArtifactID:  strings.TrimSpace(pom.ArtifactID),
		Version:     strings.TrimSpace(pom.Version),
		Packaging:   strings.TrimSpace(pom.Packaging),
		Name:        strings.TrimSpace(pom.Name),
		Description: strings.TrimSpace(pom.Description),
		Properties:  make(map[string]string, len(pom.Properties.Entries)),
		declared:    pom.Dependencies,
		managed:     pom.Management,
	}
	if pom.Parent != nil {
		m.Parent = &Coordinates{
			GroupID:    strings.TrimSpace(pom.Parent.GroupID),
			ArtifactID: strings.TrimSpace(pom.Parent.ArtifactID),
			Version:    strings.TrimSpace(pom.Parent.Version),
			Type:       "pom",
		}
		if m.GroupID == "" {
			m.GroupID = m.Parent.GroupID
		}
		if m.Version == "" {
			m.Version = m.Parent.Version
		}
	}
	for _, p := range pom.Properties.Entries {
		m.Properties[p.Key] = p.Value
	}

	if m.ArtifactID == "" {
		return nil, errors.NewValidationError("artifactId", "artifactId not found in pom")
	}

	m.Version = m.expander()(m.Version)
	if err := m.interpolate(); err != nil {
		return nil, err
	}
	return m, nil
}

// managedEntry is a dependency management line; scoped is set when it
// declares a scope of its own.
type managedEntry struct {
	descriptor Descriptor
	scoped     bool
}

// interpolate rebuilds Managed and Dependencies from the raw POM entries
// with the current properties. Managed entries are matched on Key, the
// first declaration winning.
func (m *Manifest) interpolate() error {
	expand := m.expander()

	m.Managed = nil
	managed := make(map[string]managedEntry, len(m.managed))
	for _, dep := range m.managed {
		d, err := dep.descriptor(expand)
		if err != nil {
			return fmt.Errorf("managed dependency %s:%s of %s: %w", d.GroupID, d.ArtifactID, m.ArtifactID, err)
		}
		if _, ok := managed[d.Key()]; ok {
			continue
		}
		managed[d.Key()] = managedEntry{descriptor: d, scoped: strings.TrimSpace(dep.Scope) != ""}
		m.Managed = append(m.Managed, d)
	}

	m.Dependencies = nil
	for _, dep := range m.declared {
		d, err := dep.descriptor(expand)
		if err != nil {
			return fmt.Errorf("dependency %s:%s of %s: %w", d.GroupID, d.ArtifactID, m.ArtifactID, err)
		}
		if me, ok := managed[d.Key()]; ok {
			if d.Version == "" {
				d.Version = me.descriptor.Version
			}
			if strings.TrimSpace(dep.Scope) == "" && me.scoped {
				d.Scope = me.descriptor.Scope
			}
		}
		m.Dependencies = append(m.Dependencies, d)
	}
	return nil
}

func (dep pomDependency) descriptor(expand func(string) string) (Descriptor, error) {
	d := Descriptor{
		GroupID:    expand(strings.TrimSpace(dep.GroupID)),
		ArtifactID: expand(strings.TrimSpace(dep.ArtifactID)),
		Version:    expand(strings.TrimSpace(dep.Version)),
		Type:       expand(strings.TrimSpace(dep.Type)),
		Classifier: expand(strings.TrimSpace(dep.Classifier)),
		Optional:   strings.EqualFold(strings.TrimSpace(dep.Optional), "true"),
	}
	scope, err := ParseScope(expand(dep.Scope))
	if err != nil {
		return d, err
	}
	d.Scope = scope
	return d, d.validateNames()
}

// Inherit merges what an ancestor declares into m: properties m does not
// set yet and dependency management entries after the ones m already has.
// Dependency versions are then recomputed. Call it once per ancestor,
// nearest first.
func (m *Manifest) Inherit(parent *Manifest) error {
	for k, v := range parent.Properties {
		if _, ok := m.Properties[k]; !ok {
			m.Properties[k] = v
		}
	}
	m.managed = append(m.managed, parent.managed...)
	return m.interpolate()
}

// Unresolved reports whether some dependency still lacks a concrete version.
func (m *Manifest) Unresolved() bool {
	return m.CheckVersions() != nil
}

// CheckVersions fails with an UnresolvedVersionError naming the first
// dependency whose version is missing or still holds a ${...} reference.
func (m *Manifest) CheckVersions() error {
	for _, d := range m.Dependencies {
		if d.Version == "" || strings.Contains(d.Version, "${") {
			return &errors.UnresolvedVersionError{
				Dependency: d.GroupID + ":" + d.ArtifactID,
				Manifest:   m.Coordinates().String(),
				Version:    d.Version,
			}
		}
	}
	return nil
}

// LoadManifest reads and parses a POM file.
func LoadManifest(file string) (*Manifest, error) {
	return loadManifest(file, ParseManifest)
}

func loadManifest(file string, parse func(io.Reader) (*Manifest, error)) (*Manifest, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.NewFileError(file, "open", err)
	}
	defer f.Close()

	m, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}

var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func (m *Manifest) expander() func(string) string {
	return func(s string) string {
		if !strings.Contains(s, "${") {
			return s
		}
		return propertyRef.ReplaceAllStringFunc(s, func(ref string) string {
			key := ref[2 : len(ref)-1]
			switch key {
			case "project.groupId", "pom.groupId", "groupId":
				return m.GroupID
			case "project.artifactId", "pom.artifactId", "artifactId":
				return m.ArtifactID
			case "project.version", "pom.version", "version":
				return m.Version
			case "project.parent.version", "parent.version":
				if m.Parent != nil {
					return m.Parent.Version
				}
			case "project.parent.groupId", "parent.groupId":
				if m.Parent != nil {
					return m.Parent.GroupID
				}
			}
			if v, ok := m.Properties[key]; ok {
				return v
			}
			return ref
		})
	}
}

// Marshal renders the manifest as a POM document.
func (m *Manifest) Marshal() ([]byte, error) {
	pom := pomXML{
		Xmlns:        pomNamespace,
		ModelVersion: "4.0.0",
		GroupID:      m.GroupID,
		ArtifactID:   m.ArtifactID,
		Version:      m.Version,
		Packaging:    m.Packaging,
		Name:         m.Name,
		Description:  m.Description,
	}
	if m.Parent != nil {
		pom.Parent = &pomParent{GroupID: m.Parent.GroupID, ArtifactID: m.Parent.ArtifactID, Version: m.Parent.Version}
		if pom.GroupID == m.Parent.GroupID {
			pom.GroupID = ""
		}
	}
	for _, k := range sortedKeys(m.Properties) {
		pom.Properties.Entries = append(pom.Properties.Entries, pomProperty{Key: k, Value: m.Properties[k]})
	}
	for _, d := range m.Dependencies {
		dep := pomDependency{
			GroupID:    d.GroupID,
			ArtifactID: d.ArtifactID,
			Version:    d.Version,
			Classifier: d.Classifier,
		}
		if d.Type != "" && d.Type != DefaultType {
			dep.Type = d.Type
		}
		if d.Scope != "" && d.Scope != ScopeCompile {
			dep.Scope = string(d.Scope)
		}
		if d.Optional {
			dep.Optional = "true"
		}
		pom.Dependencies = append(pom.Dependencies, dep)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(pom); err != nil {
		return nil, fmt.Errorf("failed to marshal pom: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
