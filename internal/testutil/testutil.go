// Package testutil provides shared test helpers for setting up data
// directories, databases and a small fixture catalog.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/hours/internal/catalog"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "hours-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestData creates a temporary data directory with a storage.Provider.
func TestData(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	return dataDir, store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Catalog writes the fixture catalog into store, syncs it into db and
// returns a holder over the result.
func Catalog(t *testing.T, db *catalog.DB, store storage.Provider) *catalog.Holder {
	t.Helper()
	for kind, body := range Fixture {
		if err := store.Write(kind, []byte(body)); err != nil {
			t.Fatalf("write %s: %v", kind, err)
		}
	}
	if _, err := catalog.Sync(db, store, Logger()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	h, err := catalog.NewHolder(db)
	if err != nil {
		t.Fatalf("holder: %v", err)
	}
	return h
}

// Fixture is a small but complete catalog, one JSON document per kind.
var Fixture = map[models.Kind]string{
	models.KindAspect: `[
		{"id": "tool"}, {"id": "memory"}, {"id": "beverage"}, {"id": "sustenance"},
		{"id": "device"}, {"id": "soul"}, {"id": "fabric"}, {"id": "readable"}
	]`,
	models.KindPrinciple: `[
		{"id": "edge"}, {"id": "forge"}, {"id": "grail"}, {"id": "heart"}, {"id": "knock"},
		{"id": "lantern"}, {"id": "moon"}, {"id": "moth"}, {"id": "nectar"}, {"id": "rose"},
		{"id": "scale"}, {"id": "sky"}, {"id": "winter"}
	]`,
	models.KindWisdom: `[{"id": "Bosk"}, {"id": "Illumination"}, {"id": "Horomachistry"}]`,
	models.KindWorkstationType: `[{"id": "bench"}, {"id": "library"}]`,
	models.KindItem: `[
		{"id": "candle", "name": "Candle", "lantern": 2, "aspects": [{"id": "tool"}], "is_craftable": true},
		{"id": "lamp", "name": "Brass Lamp", "lantern": 5, "forge": 1, "aspects": [{"id": "tool"}, {"id": "device"}]},
		{"id": "ink", "name": "Ink", "edge": null, "aspects": [{"id": "memory"}]},
		{"id": "wine", "name": "Wine", "grail": 3, "heart": 0, "aspects": [{"id": "beverage"}]},
		{"id": "chor", "name": "Chor", "heart": 1, "aspects": [{"id": "soul"}]}
	]`,
	models.KindSkill: `[
		{"id": "s.bells_and_brazen_bells", "name": "Bells and Brazen Bells", "level": 0,
		 "primary_principle": {"id": "heart"}, "secondary_principle": {"id": "sky"},
		 "wisdoms": [{"id": "Bosk"}, {"id": "Illumination"}]},
		{"id": "s.anbary_and_the_eye", "name": "Anbary and the Eye", "level": 0,
		 "primary_principle": {"id": "lantern"}, "secondary_principle": {"id": "knock"},
		 "wisdoms": [{"id": "Illumination"}, {"id": "Horomachistry"}]}
	]`,
	models.KindAssistant: `[
		{"id": "mare", "season": "winter", "special_aspects": [{"id": "fabric"}],
		 "base_principles": [{"principle": "heart", "count": 2}, {"principle": "winter", "count": 1}]}
	]`,
	models.KindWorkstation: `[
		{"id": "desk", "principles": [{"id": "lantern"}, {"id": "knock"}],
		 "workstation_type": {"id": "library"},
		 "workstation_slots": [
			{"id": "desk.b", "name": "Tool", "index": 1, "accepts": [{"id": "tool"}]},
			{"id": "desk.a", "name": "Memory", "index": 0, "accepts": [{"id": "memory"}]}
		 ]},
		{"id": "forge", "principles": [{"id": "forge"}, {"id": "edge"}],
		 "workstation_type": {"id": "bench"}, "workstation_slots": []}
	]`,
	models.KindRecipe: `[
		{"id": "r.candle", "principle": "lantern", "principle_amount": 5,
		 "source_aspect": {"id": "tool"}, "product": {"id": "candle", "name": "Candle"},
		 "crafting_action": "Craft", "skills": [{"id": "s.anbary_and_the_eye"}],
		 "recipe_internals": [{"id": "craft.anbary_and_the_eye.candle"}]},
		{"id": "r.lamp", "principle": "forge", "principle_amount": 8,
		 "source_item": {"id": "candle", "name": "Candle"}, "product": {"id": "lamp", "name": "Brass Lamp"},
		 "skills": [{"id": "s.bells_and_brazen_bells"}, {"id": "s.anbary_and_the_eye"}],
		 "recipe_internals": [
			{"id": "craft.bells_and_brazen_bells.lamp"},
			{"id": "craft.anbary_and_the_eye.lamp"}
		 ]}
	]`,
}
