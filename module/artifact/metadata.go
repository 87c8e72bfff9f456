package artifact

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// MetadataFile is the per-artifact version index of the Maven layout.
const MetadataFile = "maven-metadata.xml"

// Metadata represents maven-metadata.xml at groupId/artifactId level.
type Metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning lists the known versions of an artifact.
type Versioning struct {
	Latest      string   `xml:"latest,omitempty"`
	Release     string   `xml:"release,omitempty"`
	Versions    []string `xml:"versions>version"`
	LastUpdated string   `xml:"lastUpdated,omitempty"`
}

// NewMetadata creates an empty index.
func NewMetadata(groupID, artifactID string) *Metadata {
	return &Metadata{GroupID: groupID, ArtifactID: artifactID}
}

// ParseMetadata decodes maven-metadata.xml.
func ParseMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetadataFile, err)
	}
	return &m, nil
}

// AddVersion records version, keeping the list sorted, and bumps latest,
// release and lastUpdated.
func (m *Metadata) AddVersion(version string, now time.Time) {
	found := false
	for _, v := range m.Versioning.Versions {
		if v == version {
			found = true
			break
		}
	}
	if !found {
		m.Versioning.Versions = append(m.Versioning.Versions, version)
		SortVersions(m.Versioning.Versions)
	}
	m.Versioning.Latest = m.Versioning.Versions[len(m.Versioning.Versions)-1]
	m.Versioning.Release = m.Versioning.Latest
	m.Versioning.LastUpdated = now.UTC().Format("20060102150405")
}

// Marshal renders the index with an XML header.
func (m *Metadata) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
