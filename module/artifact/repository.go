package artifact

import (
	"context"
	"io"
)

// Repository is a source of artifact files.
//
// Fetch writes the file at c into w. An error wrapping errors.ErrNotFound
// means the repository does not hold c; any other error is a transport
// failure and must not be read as "does not exist".
type Repository interface {
	ID() string
	Fetch(ctx context.Context, c Coordinates, w io.Writer) error
}

// VersionLister is implemented by repositories that can enumerate the
// versions they hold for groupId:artifactId. Only GroupID and ArtifactID of
// c are used.
type VersionLister interface {
	Versions(ctx context.Context, c Coordinates) ([]string, error)
}

// Publisher is implemented by remote repositories that accept uploads.
type Publisher interface {
	Publish(ctx context.Context, c Coordinates, file string) error
}
