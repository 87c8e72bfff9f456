package artifact

import (
	"fmt"
	"path"
	"strings"

	"github.com/harness/depextract/util/common/errors"
)

// Scope of a declared dependency.
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeProvided Scope = "provided"
	ScopeSystem   Scope = "system"
)

// DefaultType is the packaging assumed when a descriptor names none.
const DefaultType = "jar"

// ParseScope maps a manifest or config scope string onto a Scope. An empty
// string yields ScopeCompile.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeCompile:
		return ScopeCompile, nil
	case ScopeRuntime:
		return ScopeRuntime, nil
	case ScopeTest:
		return ScopeTest, nil
	case ScopeProvided:
		return ScopeProvided, nil
	case ScopeSystem:
		return ScopeSystem, nil
	}
	return "", errors.NewValidationError("scope", fmt.Sprintf("unknown scope %q", s))
}

// Descriptor identifies a dependency before resolution. Version may be an
// exact version or a range expression.
type Descriptor struct {
	GroupID    string `json:"groupId" yaml:"groupId" toml:"groupId"`
	ArtifactID string `json:"artifactId" yaml:"artifactId" toml:"artifactId"`
	Version    string `json:"version" yaml:"version" toml:"version"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty" toml:"classifier,omitempty"`
	Scope      Scope  `json:"scope,omitempty" yaml:"scope,omitempty" toml:"scope,omitempty"`
	Optional   bool   `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
}

// ParseDescriptor parses "groupId:artifactId[:type[:classifier]]:version".
func ParseDescriptor(s string) (Descriptor, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var d Descriptor
	switch len(parts) {
	case 3:
		d = Descriptor{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	case 4:
		d = Descriptor{GroupID: parts[0], ArtifactID: parts[1], Type: parts[2], Version: parts[3]}
	case 5:
		d = Descriptor{GroupID: parts[0], ArtifactID: parts[1], Type: parts[2], Classifier: parts[3], Version: parts[4]}
	default:
		return Descriptor{}, errors.NewValidationError("descriptor",
			fmt.Sprintf("%q is not of the form groupId:artifactId[:type[:classifier]]:version", s))
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate checks that the coordinate fields are present and that the
// artifactId is usable as a single directory name.
func (d Descriptor) Validate() error {
	if err := d.validateNames(); err != nil {
		return err
	}
	if d.Version == "" {
		return errors.NewValidationError("version", fmt.Sprintf("version of %s:%s cannot be empty", d.GroupID, d.ArtifactID))
	}
	return nil
}

func (d Descriptor) validateNames() error {
	if d.GroupID == "" {
		return errors.NewValidationError("groupId", "groupId cannot be empty")
	}
	if d.ArtifactID == "" {
		return errors.NewValidationError("artifactId", "artifactId cannot be empty")
	}
	if strings.ContainsAny(d.GroupID+d.ArtifactID+d.Classifier, `/\`) {
		return errors.NewValidationError("descriptor", fmt.Sprintf("%s contains a path separator", d.Key()))
	}
	return nil
}

// EffectiveType returns Type, or DefaultType when none was declared.
func (d Descriptor) EffectiveType() string {
	if d.Type == "" {
		return DefaultType
	}
	return d.Type
}

// EffectiveScope returns Scope, or ScopeCompile when none was declared.
func (d Descriptor) EffectiveScope() Scope {
	if d.Scope == "" {
		return ScopeCompile
	}
	return d.Scope
}

// Key is the identity used for deduplication: groupId:artifactId:type and the
// classifier when present. The version is deliberately not part of it.
func (d Descriptor) Key() string {
	k := d.GroupID + ":" + d.ArtifactID + ":" + d.EffectiveType()
	if d.Classifier != "" {
		k += ":" + d.Classifier
	}
	return k
}

func (d Descriptor) String() string {
	return d.Key() + ":" + d.Version
}

// Coordinates binds the descriptor to a concrete version.
func (d Descriptor) Coordinates(version string) Coordinates {
	return Coordinates{
		GroupID:    d.GroupID,
		ArtifactID: d.ArtifactID,
		Version:    version,
		Type:       d.EffectiveType(),
		Classifier: d.Classifier,
	}
}

// Coordinates locate one concrete file in a repository.
type Coordinates struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
	Type       string `json:"type"`
	Classifier string `json:"classifier,omitempty"`
}

// Extension maps the Maven type onto the file extension it is stored under.
func (c Coordinates) Extension() string {
	switch c.Type {
	case "", "jar", "test-jar", "ejb", "ejb-client", "maven-plugin", "java-source", "javadoc":
		return "jar"
	}
	return c.Type
}

// EffectiveClassifier returns the classifier implied by the type when none
// was given explicitly.
func (c Coordinates) EffectiveClassifier() string {
	if c.Classifier != "" {
		return c.Classifier
	}
	switch c.Type {
	case "test-jar":
		return "tests"
	case "java-source":
		return "sources"
	case "javadoc":
		return "javadoc"
	case "ejb-client":
		return "client"
	}
	return ""
}

// FileName is artifactId-version[-classifier].extension.
func (c Coordinates) FileName() string {
	name := c.ArtifactID + "-" + c.Version
	if cl := c.EffectiveClassifier(); cl != "" {
		name += "-" + cl
	}
	return name + "." + c.Extension()
}

// ArtifactDir is the repository layout directory holding every version.
func (c Coordinates) ArtifactDir() string {
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID)
}

// Dir is the repository layout directory holding every file of this version.
func (c Coordinates) Dir() string {
	return path.Join(c.ArtifactDir(), c.Version)
}

// Path is the slash separated repository layout path of the file.
func (c Coordinates) Path() string {
	return path.Join(c.Dir(), c.FileName())
}

// Pom returns the coordinates of the manifest stored next to this artifact.
func (c Coordinates) Pom() Coordinates {
	return Coordinates{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: c.Version, Type: "pom"}
}

func (c Coordinates) String() string {
	s := c.GroupID + ":" + c.ArtifactID + ":" + c.Type
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	return s + ":" + c.Version
}
