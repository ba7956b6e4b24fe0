package dirmap

import "fmt"

// InvalidSourceError reports a source root that is missing or not a directory.
// It is fatal and raised before any mapping work begins.
type InvalidSourceError struct {
	Path string
	Err  error
}

func (e *InvalidSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid source directory %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid source directory %s", e.Path)
}

func (e *InvalidSourceError) Unwrap() error { return e.Err }

// OutputExistsError reports an output directory that already exists.
// Pre-existing output paths are always fatal: the run refuses to merge into
// or overwrite a populated tree.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("output directory %s already exists", e.Path)
}

// FileAccessError reports a file that vanished or became unreadable between
// enumeration and metrics computation. It is propagated rather than skipped so
// aggregate counts never silently understate the tree.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access file %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }
