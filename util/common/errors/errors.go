package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors that can be used across packages
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInternal         = errors.New("internal error")
)

// Sentinels for the dependency extraction taxonomy. Every typed error below
// matches exactly one of them through errors.Is.
var (
	ErrPathTraversal      = errors.New("path escapes the project domain")
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedFormat  = errors.New("unsupported archive format")
	ErrArchiveOperation   = errors.New("archive operation failed")
	ErrArtifactNotFound   = errors.New("artifact not found")
	ErrArtifactResolution = errors.New("artifact resolution failed")
	ErrCycle              = errors.New("dependency cycle")
	ErrUnresolvedVersion  = errors.New("dependency version unresolved")
)

// ValidationError represents an error that occurs during validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// FileError represents an error that occurs during file operations
type FileError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *FileError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s operation failed on %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s operation failed on %s", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Wrapped
}

// NewFileError creates a new FileError
func NewFileError(path, op string, wrapped error) error {
	return &FileError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// PathTraversalError is returned when a path would leave the directory it is
// confined to. It is never retried.
type PathTraversalError struct {
	Path string
	Root string
}

func (e *PathTraversalError) Error() string {
	if e.Root == "" {
		return fmt.Sprintf("path %q escapes the project domain", e.Path)
	}
	return fmt.Sprintf("path %q escapes %s", e.Path, e.Root)
}

func (e *PathTraversalError) Unwrap() error {
	return ErrPathTraversal
}

// FileNotFoundError is returned when a path could not be found in any of the
// locations searched for it.
type FileNotFoundError struct {
	Path     string
	Searched []string
}

func (e *FileNotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("file[%s] cannot be found", e.Path)
	}
	return fmt.Sprintf("file[%s] cannot be found (searched %s)", e.Path, strings.Join(e.Searched, ", "))
}

func (e *FileNotFoundError) Unwrap() error {
	return ErrFileNotFound
}

// UnsupportedFormatError is returned when no archive handler is registered
// for an extension, or the handler cannot perform the requested operation.
type UnsupportedFormatError struct {
	Op        string
	Extension string
	Path      string
}

func (e *UnsupportedFormatError) Error() string {
	op := e.Op
	if op == "" {
		op = "archive"
	}
	if e.Path == "" {
		return fmt.Sprintf("cannot %s: no handler for extension %q", op, e.Extension)
	}
	return fmt.Sprintf("cannot %s %s: no handler for extension %q", op, e.Path, e.Extension)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// ArchiveOperationError wraps an I/O failure raised while creating or
// extracting an archive.
type ArchiveOperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArchiveOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveOperationError) Unwrap() error {
	return e.Err
}

func (e *ArchiveOperationError) Is(target error) bool {
	return target == ErrArchiveOperation
}

// ArtifactNotFoundError is returned when no repository in the chain holds the
// requested coordinate.
type ArtifactNotFoundError struct {
	Artifact     string
	Repositories []string
}

func (e *ArtifactNotFoundError) Error() string {
	if len(e.Repositories) == 0 {
		return fmt.Sprintf("artifact %s not found", e.Artifact)
	}
	return fmt.Sprintf("artifact %s not found in repositories [%s]", e.Artifact, strings.Join(e.Repositories, ", "))
}

func (e *ArtifactNotFoundError) Unwrap() error {
	return ErrArtifactNotFound
}

// ArtifactResolutionError is returned when a repository could not be reached
// or answered with something other than "not found".
type ArtifactResolutionError struct {
	Artifact   string
	Repository string
	Err        error
}

func (e *ArtifactResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s from repository %s: %v", e.Artifact, e.Repository, e.Err)
}

func (e *ArtifactResolutionError) Unwrap() error {
	return e.Err
}

func (e *ArtifactResolutionError) Is(target error) bool {
	return target == ErrArtifactResolution
}

// CycleError is returned when a dependency is reached again while it is still
// being descended.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// UnresolvedVersionError is returned when a manifest declares a dependency
// whose version is neither given nor supplied by dependency management or
// properties of the manifest and its parents.
type UnresolvedVersionError struct {
	Dependency string
	Manifest   string
	Version    string
}

func (e *UnresolvedVersionError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("no version for dependency %s of %s", e.Dependency, e.Manifest)
	}
	return fmt.Sprintf("version %s of dependency %s of %s cannot be resolved", e.Version, e.Dependency, e.Manifest)
}

func (e *UnresolvedVersionError) Unwrap() error {
	return ErrUnresolvedVersion
}

// DependencyError attributes a failure to the dependency being processed and
// the chain of dependencies that led to it.
type DependencyError struct {
	Dependency string
	Via        []string
	Step       string
	Err        error
}

func (e *DependencyError) Error() string {
	if len(e.Via) == 0 {
		return fmt.Sprintf("%s %s: %v", e.Step, e.Dependency, e.Err)
	}
	return fmt.Sprintf("%s %s (via %s): %v", e.Step, e.Dependency, strings.Join(e.Via, " -> "), e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches err.
// It enables errors.Is() to work with our custom error types.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It enables errors.As() to work with our custom error types.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
