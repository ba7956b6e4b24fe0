// Package dirmap enumerates matching files under a source root and computes
// the structural correspondence between the source tree and a not-yet-created
// output tree. It owns no state beyond the maps it hands out; every run builds
// its maps fresh and discards them afterwards.
package dirmap

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is the per-directory record: the ordered matching filenames (base
// names, no path prefix) plus lazily computed aggregate metrics.
type Entry struct {
	Files []string
	// Count mirrors len(Files). TotalBytes is a snapshot taken by
	// ComputeMetrics and is not kept consistent if files change afterwards.
	Count      int
	TotalBytes int64
}

// Metrics is the aggregate result of a ComputeMetrics call.
type Metrics struct {
	Count      int
	TotalBytes int64
}

// Map holds one Entry per directory. Keys preserves construction order:
// pre-order traversal with lexically sorted siblings, so a parent directory
// always precedes its children. The batch invoker's single-level directory
// creation relies on that ordering.
type Map struct {
	Keys    []string
	Entries map[string]*Entry
}

// Len returns the number of directories in the map.
func (m *Map) Len() int { return len(m.Keys) }

// Mapper builds source and output maps according to a mapping Plan.
type Mapper struct {
	extension     string
	matchContains bool
	pruneEmpty    bool
}

// NewMapper creates a Mapper from the given plan.
func NewMapper(p *Plan) *Mapper {
	return &Mapper{
		extension:     p.Extension,
		matchContains: p.MatchContains,
		pruneEmpty:    p.PruneEmptyDirs,
	}
}

// matches reports whether a filename passes the extension filter.
func (m *Mapper) matches(name string) bool {
	if m.matchContains {
		return strings.Contains(name, m.extension)
	}
	return strings.HasSuffix(name, m.extension)
}

// BuildSourceMap enumerates matching files under sourceRoot. In flat mode only
// the root's immediate children are scanned, yielding a single-entry map keyed
// by sourceRoot. In recursive mode every reachable directory gets an entry,
// including zero-match directories unless the plan prunes them.
func (m *Mapper) BuildSourceMap(sourceRoot string, recursive bool) (*Map, error) {
	info, err := os.Stat(sourceRoot)
	if err != nil {
		return nil, &InvalidSourceError{Path: sourceRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidSourceError{Path: sourceRoot}
	}

	result := &Map{Entries: make(map[string]*Entry)}

	if !recursive {
		dirEntries, err := os.ReadDir(sourceRoot)
		if err != nil {
			return nil, &InvalidSourceError{Path: sourceRoot, Err: err}
		}
		entry := &Entry{}
		for _, de := range dirEntries {
			if de.IsDir() || !m.matches(de.Name()) {
				continue
			}
			entry.Files = append(entry.Files, de.Name())
		}
		entry.Count = len(entry.Files)
		result.Keys = append(result.Keys, sourceRoot)
		result.Entries[sourceRoot] = entry
		return result, nil
	}

	walkErr := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			result.Keys = append(result.Keys, path)
			result.Entries[path] = &Entry{}
			return nil
		}
		if !m.matches(d.Name()) {
			return nil
		}
		parent := result.Entries[filepath.Dir(path)]
		parent.Files = append(parent.Files, d.Name())
		parent.Count = len(parent.Files)
		return nil
	})
	if walkErr != nil {
		return nil, &InvalidSourceError{Path: sourceRoot, Err: walkErr}
	}

	if m.pruneEmpty {
		m.pruneEmptySubtrees(result, sourceRoot)
	}
	return result, nil
}

// pruneEmptySubtrees removes directories whose entire subtree contains no
// matching files. A directory with matches keeps all of its ancestors, so the
// parent-before-child ordering survives pruning. The source root is always
// retained.
func (m *Mapper) pruneEmptySubtrees(sm *Map, sourceRoot string) {
	keep := make(map[string]bool, len(sm.Keys))
	// Walk keys bottom-up: children appear after their parent, so a reverse
	// scan sees every child before its parent.
	for i := len(sm.Keys) - 1; i >= 0; i-- {
		key := sm.Keys[i]
		if len(sm.Entries[key].Files) > 0 || keep[key] {
			keep[key] = true
			keep[filepath.Dir(key)] = true
		}
	}

	kept := sm.Keys[:0]
	for _, key := range sm.Keys {
		if key == sourceRoot || keep[key] {
			kept = append(kept, key)
			continue
		}
		delete(sm.Entries, key)
	}
	sm.Keys = kept
}

// DeriveOutputMap mirrors a source map into the output root: every key's
// leading sourceRoot segment is rewritten to outputRoot. Only the structural
// root segment is replaced; a sourceRoot string appearing deeper in a nested
// path is left alone, which the Rel/Join pair guarantees. Entries are shared
// with the source map, the filesystem is never re-scanned.
//
// The output root must not exist yet; this is checked once here, not per
// subdirectory.
func (m *Mapper) DeriveOutputMap(src *Map, sourceRoot, outputRoot string) (*Map, error) {
	if _, err := os.Stat(outputRoot); err == nil {
		return nil, &OutputExistsError{Path: outputRoot}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	out := &Map{
		Keys:    make([]string, 0, len(src.Keys)),
		Entries: make(map[string]*Entry, len(src.Keys)),
	}
	for _, key := range src.Keys {
		rel, err := filepath.Rel(sourceRoot, key)
		if err != nil {
			return nil, &InvalidSourceError{Path: key, Err: err}
		}
		outKey := filepath.Join(outputRoot, rel)
		out.Keys = append(out.Keys, outKey)
		out.Entries[outKey] = src.Entries[key]
	}
	return out, nil
}

// ComputeMetrics stats every filename of the keyed entry and records the
// aggregate count and byte size on it. The result is a snapshot; a file that
// disappeared since enumeration surfaces as a *FileAccessError rather than
// being skipped.
func (m *Mapper) ComputeMetrics(mp *Map, directoryKey string) (Metrics, error) {
	entry, ok := mp.Entries[directoryKey]
	if !ok {
		return Metrics{}, &FileAccessError{Path: directoryKey, Err: os.ErrNotExist}
	}

	var total int64
	for _, name := range entry.Files {
		filePath := filepath.Join(directoryKey, name)
		info, err := os.Stat(filePath)
		if err != nil {
			return Metrics{}, &FileAccessError{Path: filePath, Err: err}
		}
		total += info.Size()
	}

	entry.Count = len(entry.Files)
	entry.TotalBytes = total
	return Metrics{Count: entry.Count, TotalBytes: total}, nil
}
