package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
)

// LocalID is the repository id of the local cache.
const LocalID = "local"

const localMetadataFile = "maven-metadata-local.xml"

// LocalRepository is a Maven layout tree on the local filesystem. It serves
// as the cache at the head of a Chain, and as a remote for file:// URLs.
type LocalRepository struct {
	id   string
	root string
}

// NewLocalRepository returns the local cache rooted at root.
func NewLocalRepository(root string) *LocalRepository {
	return &LocalRepository{id: LocalID, root: root}
}

// NewFileRepository returns a read-only style remote backed by a directory.
func NewFileRepository(id, root string) *LocalRepository {
	return &LocalRepository{id: id, root: root}
}

func (r *LocalRepository) ID() string { return r.id }

func (r *LocalRepository) Root() string { return r.root }

// PathOf returns where c lives (or would live) in this repository.
func (r *LocalRepository) PathOf(c Coordinates) string {
	return filepath.Join(r.root, filepath.FromSlash(c.Path()))
}

// Find returns the path of c if the repository holds it.
func (r *LocalRepository) Find(c Coordinates) (string, bool) {
	p := r.PathOf(c)
	if !fileutil.IsFile(p) {
		return "", false
	}
	return p, true
}

func (r *LocalRepository) Fetch(ctx context.Context, c Coordinates, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(r.PathOf(c))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s in %s: %w", c.Path(), r.root, errors.ErrNotFound)
		}
		return errors.NewFileError(r.PathOf(c), "open", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return errors.NewFileError(r.PathOf(c), "read", err)
	}
	return nil
}

// Versions lists the version directories present for groupId:artifactId.
func (r *LocalRepository) Versions(ctx context.Context, c Coordinates) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(r.root, filepath.FromSlash(c.ArtifactDir()))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewFileError(dir, "list", err)
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	SortVersions(versions)
	return versions, nil
}

// Store installs src as c. The copy keeps src's modification time. When
// metadata is given it is written as the artifact's .pom, and the local
// version index is updated.
func (r *LocalRepository) Store(c Coordinates, src string, metadata []byte) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", errors.NewFileError(src, "stat", err)
	}
	if info.IsDir() {
		return "", errors.NewValidationError("src", fmt.Sprintf("%s is a directory, expected a file", src))
	}

	f, err := os.Open(src)
	if err != nil {
		return "", errors.NewFileError(src, "open", err)
	}
	defer f.Close()

	dst, err := r.receive(c, func(w io.Writer) error {
		_, err := io.Copy(w, f)
		return err
	})
	if err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", errors.NewFileError(dst, "chtimes", err)
	}

	if metadata != nil && c.Type != "pom" {
		if err := fileutil.WriteFile(r.PathOf(c.Pom()), metadata); err != nil {
			return "", err
		}
	}
	if err := r.updateIndex(c, time.Now()); err != nil {
		return "", err
	}
	return dst, nil
}

// receive writes c through fetch into a temporary file next to its final
// location and renames it into place only when fetch succeeds.
func (r *LocalRepository) receive(c Coordinates, fetch func(w io.Writer) error) (string, error) {
	dst := r.PathOf(c)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.NewFileError(dir, "create", err)
	}

	tmp, err := os.CreateTemp(dir, "."+c.FileName()+".*.part")
	if err != nil {
		return "", errors.NewFileError(dir, "create_temp", err)
	}
	tmpName := tmp.Name()

	if err := fetch(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.NewFileError(tmpName, "close", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", errors.NewFileError(dst, "rename", err)
	}
	return dst, nil
}

func (r *LocalRepository) updateIndex(c Coordinates, now time.Time) error {
	p := filepath.Join(r.root, filepath.FromSlash(c.ArtifactDir()), localMetadataFile)

	md := NewMetadata(c.GroupID, c.ArtifactID)
	if f, err := os.Open(p); err == nil {
		parsed, perr := ParseMetadata(f)
		f.Close()
		if perr == nil {
			md = parsed
		}
	}
	md.AddVersion(c.Version, now)

	data, err := md.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", localMetadataFile, err)
	}
	return fileutil.WriteFile(p, data)
}
