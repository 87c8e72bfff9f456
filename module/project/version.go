package project

import (
	"strings"
	"time"
)

const (
	snapshotQualifier = "SNAPSHOT"
	snapshotLayout    = "20060102150405-0700"
	resolvedLayout    = "20060102150405"
)

// SnapshotVersion stamps version with now. The SNAPSHOT qualifier is
// replaced by the stamp; a version without one gets it appended.
//
//	SnapshotVersion("1.0-SNAPSHOT", t) // 1.0-20240102150405+0000
//	SnapshotVersion("1.0", t)          // 1.0-20240102150405+0000
func SnapshotVersion(version string, now time.Time) string {
	stamp := now.Format(snapshotLayout)
	if strings.Contains(version, snapshotQualifier) {
		return strings.Replace(version, snapshotQualifier, stamp, 1)
	}
	return version + "-" + stamp
}

// ResolvedVersion turns a "-SNAPSHOT" version into a dotted timestamped
// release version. Other versions are returned as is.
//
//	ResolvedVersion("1.0-SNAPSHOT", t) // 1.0.20240102150405
func ResolvedVersion(version string, now time.Time) string {
	suffix := "-" + snapshotQualifier
	if !strings.Contains(version, suffix) {
		return version
	}
	return strings.Replace(version, suffix, "."+now.Format(resolvedLayout), 1)
}

// SnapshotVersion stamps the project version with now.
func (p *Project) SnapshotVersion(now time.Time) string {
	return SnapshotVersion(p.Version, now)
}

// ResolvedVersion returns the project version with any snapshot qualifier
// replaced by a timestamp.
func (p *Project) ResolvedVersion(now time.Time) string {
	return ResolvedVersion(p.Version, now)
}
