package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/hours/internal/catalog"
	"github.com/starford/hours/internal/progress"
	"github.com/starford/hours/internal/storage"
	"github.com/starford/hours/internal/testutil"
)

// testConfig returns a config whose data directory holds the fixture
// catalog.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Data.Path = filepath.Join(dir, "data")
	cfg.SQLite.Path = filepath.Join(dir, "hours.db")

	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		t.Fatal(err)
	}
	for kind, body := range testutil.Fixture {
		if err := store.Write(kind, []byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func userSkills(t *testing.T, cfg *Config) int {
	t.Helper()
	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	h, err := catalog.NewHolder(db)
	if err != nil {
		t.Fatal(err)
	}
	ud, err := progress.NewService(db, h).UserData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return len(ud.Skills)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSchema(context.Background(), &buf); err != nil {
		t.Fatalf("WriteSchema: %v", err)
	}
	var out struct {
		Data struct {
			Schema struct {
				QueryType struct {
					Name string `json:"name"`
				} `json:"queryType"`
			} `json:"__schema"`
		} `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.Schema.QueryType.Name != "Query" {
		t.Errorf("query type = %q", out.Data.Schema.QueryType.Name)
	}
}

func TestImportAutosaveAndEmptyDB(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	opts := []Option{WithConfig(cfg), WithLogOutput(&bytes.Buffer{})}

	imported, err := ImportAutosave(ctx, filepath.Join("autosave", "testdata", "AUTOSAVE.json"), opts...)
	if err != nil {
		t.Fatalf("ImportAutosave: %v", err)
	}
	if !imported {
		t.Fatal("first import should change progress")
	}
	if n := userSkills(t, cfg); n != 2 {
		t.Fatalf("skills after import = %d, want 2", n)
	}

	imported, err = ImportAutosave(ctx, filepath.Join("autosave", "testdata", "AUTOSAVE.json"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	if imported {
		t.Error("unchanged autosave should be skipped")
	}

	if err := EmptyDB(ctx, opts...); err != nil {
		t.Fatalf("EmptyDB: %v", err)
	}
	if n := userSkills(t, cfg); n != 0 {
		t.Errorf("skills after EmptyDB = %d, want 0", n)
	}
}

func TestImportAutosave_Missing(t *testing.T) {
	cfg := testConfig(t)
	_, err := ImportAutosave(context.Background(), filepath.Join(t.TempDir(), "AUTOSAVE.json"),
		WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err == nil {
		t.Fatal("expected error for a missing autosave")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
