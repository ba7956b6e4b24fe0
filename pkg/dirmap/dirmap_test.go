package dirmap

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeFile creates a file of the given size under dir.
func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to create test file %s: %v", path, err)
	}
	return path
}

func newTestMapper() *Mapper {
	return NewMapper(&Plan{Extension: ".txt"})
}

func TestBuildSourceMapFlat(t *testing.T) {
	t.Run("Only matching files in the root are mapped", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.txt", 10)
		writeFile(t, root, "b.not", 5)

		sm, err := newTestMapper().BuildSourceMap(root, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if sm.Len() != 1 {
			t.Fatalf("expected exactly one directory entry, got %d", sm.Len())
		}
		if sm.Keys[0] != root {
			t.Errorf("expected key %q, got %q", root, sm.Keys[0])
		}
		if !reflect.DeepEqual(sm.Entries[root].Files, []string{"a.txt"}) {
			t.Errorf("expected files [a.txt], got %v", sm.Entries[root].Files)
		}
	})

	t.Run("Subdirectories are ignored in flat mode", func(t *testing.T) {
		root := t.TempDir()
		sub := filepath.Join(root, "sub")
		if err := os.Mkdir(sub, 0755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, sub, "c.txt", 3)

		sm, err := newTestMapper().BuildSourceMap(root, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sm.Len() != 1 {
			t.Errorf("expected one key regardless of subdirectory contents, got %d", sm.Len())
		}
		if len(sm.Entries[root].Files) != 0 {
			t.Errorf("expected no files in root entry, got %v", sm.Entries[root].Files)
		}
	})

	t.Run("Missing source fails with InvalidSourceError", func(t *testing.T) {
		_, err := newTestMapper().BuildSourceMap(filepath.Join(t.TempDir(), "nope"), false)
		var invalidErr *InvalidSourceError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected *InvalidSourceError, got %v", err)
		}
	})

	t.Run("File as source fails with InvalidSourceError", func(t *testing.T) {
		root := t.TempDir()
		file := writeFile(t, root, "f.txt", 1)
		_, err := newTestMapper().BuildSourceMap(file, false)
		var invalidErr *InvalidSourceError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected *InvalidSourceError, got %v", err)
		}
	})
}

func TestBuildSourceMapRecursive(t *testing.T) {
	// Tree mirrors the typical scan layout: root with two files, one matching
	// subdir, one non-matching subdir with a nested matching grandchild.
	buildTree := func(t *testing.T) string {
		root := t.TempDir()
		writeFile(t, root, "r0.txt", 4)
		writeFile(t, root, "r1.txt", 4)
		for _, d := range []string{"sub0", "sub1", filepath.Join("sub1", "sub10")} {
			if err := os.Mkdir(filepath.Join(root, d), 0755); err != nil {
				t.Fatal(err)
			}
		}
		writeFile(t, filepath.Join(root, "sub0"), "s0.txt", 4)
		writeFile(t, filepath.Join(root, "sub1"), "s1.not", 4)
		writeFile(t, filepath.Join(root, "sub1", "sub10"), "s10.txt", 4)
		return root
	}

	t.Run("Every reachable directory gets an entry", func(t *testing.T) {
		root := buildTree(t)
		sm, err := newTestMapper().BuildSourceMap(root, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantKeys := []string{
			root,
			filepath.Join(root, "sub0"),
			filepath.Join(root, "sub1"),
			filepath.Join(root, "sub1", "sub10"),
		}
		if !reflect.DeepEqual(sm.Keys, wantKeys) {
			t.Errorf("expected keys %v, got %v", wantKeys, sm.Keys)
		}

		// sub1 has no matching file but is retained to mirror tree shape.
		if got := sm.Entries[filepath.Join(root, "sub1")].Count; got != 0 {
			t.Errorf("expected zero-match directory to have count 0, got %d", got)
		}
		if got := sm.Entries[root].Files; !reflect.DeepEqual(got, []string{"r0.txt", "r1.txt"}) {
			t.Errorf("expected ordered root files, got %v", got)
		}
	})

	t.Run("Parents always precede children in key order", func(t *testing.T) {
		root := buildTree(t)
		sm, err := newTestMapper().BuildSourceMap(root, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen := make(map[string]bool)
		for _, key := range sm.Keys {
			if key != root && !seen[filepath.Dir(key)] {
				t.Errorf("key %q appeared before its parent", key)
			}
			seen[key] = true
		}
	})

	t.Run("Mapping is idempotent on an unchanged tree", func(t *testing.T) {
		root := buildTree(t)
		m := newTestMapper()
		first, err := m.BuildSourceMap(root, true)
		if err != nil {
			t.Fatal(err)
		}
		second, err := m.BuildSourceMap(root, true)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Keys, second.Keys) {
			t.Errorf("keys differ between runs: %v vs %v", first.Keys, second.Keys)
		}
		for _, key := range first.Keys {
			if !reflect.DeepEqual(first.Entries[key].Files, second.Entries[key].Files) {
				t.Errorf("files for %q differ between runs", key)
			}
		}
	})

	t.Run("PruneEmptyDirs drops matchless subtrees but keeps ancestors of matches", func(t *testing.T) {
		root := buildTree(t)
		// Extra dir whose whole subtree has no matches.
		if err := os.MkdirAll(filepath.Join(root, "sub2", "deep"), 0755); err != nil {
			t.Fatal(err)
		}

		m := NewMapper(&Plan{Extension: ".txt", PruneEmptyDirs: true})
		sm, err := m.BuildSourceMap(root, true)
		if err != nil {
			t.Fatal(err)
		}

		wantKeys := []string{
			root,
			filepath.Join(root, "sub0"),
			// sub1 has no own matches but shelters sub10, so it survives.
			filepath.Join(root, "sub1"),
			filepath.Join(root, "sub1", "sub10"),
		}
		if !reflect.DeepEqual(sm.Keys, wantKeys) {
			t.Errorf("expected pruned keys %v, got %v", wantKeys, sm.Keys)
		}
		if _, ok := sm.Entries[filepath.Join(root, "sub2")]; ok {
			t.Error("expected matchless subtree sub2 to be pruned from entries")
		}
	})
}

func TestExtensionMatching(t *testing.T) {
	t.Run("Suffix matching rejects embedded extension tokens", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "report.txt", 1)
		writeFile(t, root, "report.txtold", 1)

		sm, err := newTestMapper().BuildSourceMap(root, false)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(sm.Entries[root].Files, []string{"report.txt"}) {
			t.Errorf("expected only report.txt to match, got %v", sm.Entries[root].Files)
		}
	})

	t.Run("MatchContains restores the legacy containment rule", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "report.txt", 1)
		writeFile(t, root, "report.txtold", 1)

		m := NewMapper(&Plan{Extension: ".txt", MatchContains: true})
		sm, err := m.BuildSourceMap(root, false)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"report.txt", "report.txtold"}
		if !reflect.DeepEqual(sm.Entries[root].Files, want) {
			t.Errorf("expected %v under containment matching, got %v", want, sm.Entries[root].Files)
		}
	})
}

func TestDeriveOutputMap(t *testing.T) {
	t.Run("Keys are a bijective order-preserving prefix rewrite", func(t *testing.T) {
		base := t.TempDir()
		root := filepath.Join(base, "source")
		sub := filepath.Join(root, "sub")
		if err := os.MkdirAll(sub, 0755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, sub, "c.txt", 2)
		outputRoot := filepath.Join(base, "out")

		m := newTestMapper()
		sm, err := m.BuildSourceMap(root, true)
		if err != nil {
			t.Fatal(err)
		}
		om, err := m.DeriveOutputMap(sm, root, outputRoot)
		if err != nil {
			t.Fatal(err)
		}

		if om.Len() != sm.Len() {
			t.Fatalf("expected output map length %d, got %d", sm.Len(), om.Len())
		}
		wantKeys := []string{outputRoot, filepath.Join(outputRoot, "sub")}
		if !reflect.DeepEqual(om.Keys, wantKeys) {
			t.Errorf("expected output keys %v, got %v", wantKeys, om.Keys)
		}
		// Entries are shared, not re-scanned.
		if om.Entries[wantKeys[1]] != sm.Entries[sub] {
			t.Error("expected output entry to share the source entry")
		}
	})

	t.Run("Source root name nested deeper in the path is not rewritten", func(t *testing.T) {
		base := t.TempDir()
		root := filepath.Join(base, "data")
		// A subdirectory that repeats the root's base name.
		nested := filepath.Join(root, "data")
		if err := os.MkdirAll(nested, 0755); err != nil {
			t.Fatal(err)
		}
		outputRoot := filepath.Join(base, "out")

		m := newTestMapper()
		sm, err := m.BuildSourceMap(root, true)
		if err != nil {
			t.Fatal(err)
		}
		om, err := m.DeriveOutputMap(sm, root, outputRoot)
		if err != nil {
			t.Fatal(err)
		}

		want := filepath.Join(outputRoot, "data")
		if om.Keys[1] != want {
			t.Errorf("expected nested key %q, got %q", want, om.Keys[1])
		}
	})

	t.Run("Pre-existing output root fails with OutputExistsError", func(t *testing.T) {
		base := t.TempDir()
		root := filepath.Join(base, "source")
		if err := os.Mkdir(root, 0755); err != nil {
			t.Fatal(err)
		}
		outputRoot := filepath.Join(base, "out")
		if err := os.Mkdir(outputRoot, 0755); err != nil {
			t.Fatal(err)
		}

		m := newTestMapper()
		sm, err := m.BuildSourceMap(root, true)
		if err != nil {
			t.Fatal(err)
		}
		_, err = m.DeriveOutputMap(sm, root, outputRoot)
		var existsErr *OutputExistsError
		if !errors.As(err, &existsErr) {
			t.Fatalf("expected *OutputExistsError, got %v", err)
		}
	})
}

func TestComputeMetrics(t *testing.T) {
	t.Run("Count and byte totals match the files on disk", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.txt", 10)
		writeFile(t, root, "b.not", 5)

		m := newTestMapper()
		sm, err := m.BuildSourceMap(root, false)
		if err != nil {
			t.Fatal(err)
		}
		got, err := m.ComputeMetrics(sm, root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Count != 1 || got.TotalBytes != 10 {
			t.Errorf("expected {count: 1, bytes: 10}, got %+v", got)
		}
		entry := sm.Entries[root]
		if entry.Count != len(entry.Files) || entry.TotalBytes != 10 {
			t.Errorf("expected entry metrics to be recorded, got %+v", entry)
		}
	})

	t.Run("Vanished file fails with FileAccessError", func(t *testing.T) {
		root := t.TempDir()
		path := writeFile(t, root, "a.txt", 10)

		m := newTestMapper()
		sm, err := m.BuildSourceMap(root, false)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}

		_, err = m.ComputeMetrics(sm, root)
		var accessErr *FileAccessError
		if !errors.As(err, &accessErr) {
			t.Fatalf("expected *FileAccessError, got %v", err)
		}
	})

	t.Run("Unknown directory key fails with FileAccessError", func(t *testing.T) {
		root := t.TempDir()
		m := newTestMapper()
		sm, err := m.BuildSourceMap(root, false)
		if err != nil {
			t.Fatal(err)
		}
		_, err = m.ComputeMetrics(sm, filepath.Join(root, "ghost"))
		var accessErr *FileAccessError
		if !errors.As(err, &accessErr) {
			t.Fatalf("expected *FileAccessError for unknown key, got %v", err)
		}
	})
}
