package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/hours/internal/checksum"
	"github.com/starford/hours/internal/models"
)

func tempData(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempData(t)
	content := []byte(`[{"id":"Edge"}]`)
	if err := s.Write(models.KindAspect, content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(models.KindAspect)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "aspect.json")); err != nil {
		t.Errorf("aspect.json not on disk: %v", err)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempData(t)
	if _, err := s.Read(models.KindRecipe); err == nil {
		t.Error("expected error reading missing data file")
	}
}

func TestList(t *testing.T) {
	s := tempData(t)
	_ = s.Write(models.KindItem, []byte("[]"))
	_ = s.Write(models.KindSkill, []byte(`[{"id":"s.x"}]`))
	_ = os.WriteFile(filepath.Join(s.Root(), "notes.json"), []byte("{}"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Root(), "readme.txt"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(s.Root(), "recipe.json"), 0o755)

	files, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(files), files)
	}
	byKind := map[models.Kind]DataFile{}
	for _, f := range files {
		byKind[f.Kind] = f
	}
	if got := byKind[models.KindSkill].Checksum; got != checksum.Sum([]byte(`[{"id":"s.x"}]`)) {
		t.Errorf("skill checksum = %q", got)
	}
	if byKind[models.KindItem].Path != "item.json" {
		t.Errorf("item path = %q", byKind[models.KindItem].Path)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempData(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
		".",
	}
	for _, p := range cases {
		if _, err := s.safePath(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempData(t)
	_ = s.Write(models.KindWisdom, []byte("[]"))

	updated := []byte(`[{"id":"Birdsong"}]`)
	if err := s.Write(models.KindWisdom, updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read(models.KindWisdom)
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".hours-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/hours-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "hours-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
