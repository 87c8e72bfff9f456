// Package archive maps file extensions to the handlers that create and
// extract those container formats.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/pattern"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Handler creates and extracts one container format.
type Handler interface {
	// Archive writes every entry of src into w.
	Archive(ctx context.Context, src *Source, w io.Writer) error
	// Extract unpacks srcFile into dest.
	Extract(ctx context.Context, srcFile string, dest *Destination) error
}

// ExtractOnly is implemented by handlers that can read a format but not
// write it.
type ExtractOnly interface {
	ExtractOnly() bool
}

// EntryReader is implemented by handlers that can stream single entries out
// of an archive without extracting it.
type EntryReader interface {
	// ReadEntries calls fn, in archive order, for every regular file entry
	// whose name wanted accepts.
	ReadEntries(ctx context.Context, srcFile string, wanted func(name string) bool, fn func(name string, r io.Reader) error) error
}

// Registry maps extensions to handlers. Extensions are case-sensitive and
// stored without a leading dot.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewEmptyRegistry returns a registry with no handlers.
func NewEmptyRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger: log.With().
			Str("component", "archive_registry").
			Logger(),
	}
}

// NewRegistry returns a registry holding the default handlers: zip, jar,
// war, ear, tar, tar.gz, tgz, tar.zst, tar.lz4 and (extract only) tar.bz2.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	zh := &zipHandler{}
	for _, ext := range []string{"zip", "jar", "war", "ear"} {
		r.handlers[ext] = zh
	}
	r.handlers["tar"] = &tarHandler{codec: plainCodec{}}
	r.handlers["tar.gz"] = &tarHandler{codec: gzipCodec{}}
	r.handlers["tgz"] = r.handlers["tar.gz"]
	r.handlers["tar.zst"] = &tarHandler{codec: zstdCodec{}}
	r.handlers["tar.lz4"] = &tarHandler{codec: lz4Codec{}}
	r.handlers["tar.bz2"] = &tarHandler{codec: bzip2Codec{}}
	return r
}

func normalizeExtension(ext string) string {
	return strings.TrimPrefix(ext, ".")
}

// Register binds ext to h. It refuses an empty extension, a nil handler and
// an extension that is already bound.
func (r *Registry) Register(ext string, h Handler) error {
	ext = normalizeExtension(ext)
	if ext == "" {
		return errors.NewValidationError("extension", "extension cannot be empty")
	}
	if h == nil {
		return errors.NewValidationError("handler", fmt.Sprintf("handler for %q cannot be nil", ext))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[ext]; exists {
		return fmt.Errorf("handler for extension %q: %w", ext, errors.ErrInvalidOperation)
	}
	r.handlers[ext] = h
	return nil
}

// Lookup returns the handler bound to ext.
func (r *Registry) Lookup(ext string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[normalizeExtension(ext)]
	return h, ok
}

// Extensions lists the registered extensions in lexical order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.handlers))
	for ext := range r.handlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether file's extension has a handler.
func (r *Registry) Supports(file string) bool {
	_, ok := r.Lookup(ExtensionOf(file))
	return ok
}

// ExtensionOf returns the archive extension of name: a compound "tar.*"
// suffix when present, otherwise the last extension. It returns "" for a
// name without extension.
func ExtensionOf(name string) string {
	base := filepath.Base(name)
	if i := strings.LastIndex(base, ".tar."); i > 0 {
		return base[i+1:]
	}
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return ""
	}
	return ext[1:]
}

func (r *Registry) handlerFor(op, file string) (Handler, error) {
	ext := ExtensionOf(file)
	h, ok := r.Lookup(ext)
	if !ok {
		return nil, &errors.UnsupportedFormatError{Op: op, Extension: ext, Path: file}
	}
	return h, nil
}

// Option configures extraction.
type Option func(*options)

type options struct {
	includes []string
	excludes []string
}

// WithIncludes restricts extraction to entries matching any of patterns.
func WithIncludes(patterns ...string) Option {
	return func(o *options) { o.includes = append(o.includes, patterns...) }
}

// WithExcludes skips entries matching any of patterns.
func WithExcludes(patterns ...string) Option {
	return func(o *options) { o.excludes = append(o.excludes, patterns...) }
}

// ReadEntry returns the first of names that file holds, in the order names
// are given, together with its content. Entries rejected by the include and
// exclude options count as absent, exactly as Unarchive would skip them. An
// empty name and no error mean the archive holds none of names.
func (r *Registry) ReadEntry(ctx context.Context, file string, names []string, opts ...Option) (string, []byte, error) {
	h, err := r.handlerFor("read", file)
	if err != nil {
		return "", nil, err
	}
	er, ok := h.(EntryReader)
	if !ok {
		return "", nil, &errors.UnsupportedFormatError{Op: "read", Extension: ExtensionOf(file), Path: file}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	matcher, err := pattern.NewMatcher(o.includes, o.excludes)
	if err != nil {
		return "", nil, errors.NewValidationError("pattern", err.Error())
	}

	index := make(map[string]int, len(names))
	for i, n := range names {
		n = entryName(n)
		if _, dup := index[n]; !dup && n != "" && matcher.Match(n) {
			index[n] = i
		}
	}
	if len(index) == 0 {
		return "", nil, nil
	}

	found := make(map[int][]byte, len(index))
	err = er.ReadEntries(ctx, file, func(name string) bool {
		_, ok := index[entryName(name)]
		return ok
	}, func(name string, rd io.Reader) error {
		data, err := io.ReadAll(rd)
		if err != nil {
			return fmt.Errorf("read entry %s: %w", name, err)
		}
		found[index[entryName(name)]] = data
		return nil
	})
	if err != nil {
		return "", nil, wrapOp("read", file, err)
	}

	for i, n := range names {
		if data, ok := found[i]; ok {
			return n, data, nil
		}
	}
	return "", nil, nil
}

// Unarchive extracts src into dest. The handler is chosen by src's
// extension before anything is written, so an unsupported format leaves
// dest untouched. dest is created if needed, existing entries are always
// overwritten, and dest's modification time is set to src's.
func (r *Registry) Unarchive(ctx context.Context, src, dest string, opts ...Option) error {
	h, err := r.handlerFor("unarchive", src)
	if err != nil {
		return err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	matcher, err := pattern.NewMatcher(o.includes, o.excludes)
	if err != nil {
		return errors.NewValidationError("pattern", err.Error())
	}

	info, err := os.Stat(src)
	if err != nil {
		return &errors.ArchiveOperationError{Op: "unarchive", Path: src, Err: err}
	}
	if info.IsDir() {
		return &errors.ArchiveOperationError{Op: "unarchive", Path: src, Err: fmt.Errorf("is a directory")}
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return &errors.ArchiveOperationError{Op: "unarchive", Path: dest, Err: err}
	}

	d, err := newDestination(dest, matcher)
	if err != nil {
		return &errors.ArchiveOperationError{Op: "unarchive", Path: dest, Err: err}
	}
	if err := h.Extract(ctx, src, d); err != nil {
		return wrapOp("unarchive", src, err)
	}
	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return &errors.ArchiveOperationError{Op: "unarchive", Path: dest, Err: err}
	}

	r.logger.Debug().
		Str("src", src).
		Str("dest", dest).
		Int("files", d.Files()).
		Msg("Extracted archive")
	return nil
}

// Archive packs the whole srcDir tree into dest, choosing the format by
// dest's extension. The archive is written to a temporary file next to dest
// and renamed over it on success.
func (r *Registry) Archive(ctx context.Context, srcDir, dest string) error {
	h, err := r.handlerFor("archive", dest)
	if err != nil {
		return err
	}
	if eo, ok := h.(ExtractOnly); ok && eo.ExtractOnly() {
		return &errors.UnsupportedFormatError{Op: "archive", Extension: ExtensionOf(dest), Path: dest}
	}

	info, err := os.Stat(srcDir)
	if err != nil {
		return &errors.ArchiveOperationError{Op: "archive", Path: srcDir, Err: err}
	}
	if !info.IsDir() {
		return errors.NewValidationError("src", fmt.Sprintf("%s is not a directory", srcDir))
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &errors.ArchiveOperationError{Op: "archive", Path: dest, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return &errors.ArchiveOperationError{Op: "archive", Path: dest, Err: err}
	}
	tmpName := tmp.Name()

	src := newSource(srcDir, tmpName, dest)
	if err := h.Archive(ctx, src, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return wrapOp("archive", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &errors.ArchiveOperationError{Op: "archive", Path: dest, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return &errors.ArchiveOperationError{Op: "archive", Path: dest, Err: err}
	}

	r.logger.Debug().
		Str("src", srcDir).
		Str("dest", dest).
		Int("entries", src.Entries()).
		Msg("Created archive")
	return nil
}

// wrapOp wraps err as an ArchiveOperationError unless it already is one.
func wrapOp(op, path string, err error) error {
	var aoe *errors.ArchiveOperationError
	if errors.As(err, &aoe) {
		return err
	}
	return &errors.ArchiveOperationError{Op: op, Path: path, Err: err}
}
