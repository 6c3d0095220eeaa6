package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/storage"
)

// Sync brings the database up to date with the data directory:
//   - new/changed data files are decoded and replace their kind
//   - kinds whose file disappeared are dropped
//
// It returns the kinds that changed. A file that fails to decode is logged
// and left as previously loaded.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) ([]models.Kind, error) {
	files, err := store.List()
	if err != nil {
		return nil, err
	}

	checksums, err := db.Checksums()
	if err != nil {
		return nil, err
	}

	var changed []models.Kind
	disk := make(map[models.Kind]struct{}, len(files))
	for _, f := range files {
		disk[f.Kind] = struct{}{}

		if checksums[f.Kind] == f.Checksum {
			continue
		}

		data, err := store.Read(f.Kind)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("kind", string(f.Kind)), slog.String("error", err.Error()))
			continue
		}
		rows, err := decodeRows(f.Kind, data)
		if err != nil {
			logger.Warn("sync: decode failed", slog.String("kind", string(f.Kind)), slog.String("error", err.Error()))
			continue
		}
		if err := db.ReplaceKind(f.Kind, f.Checksum, rows); err != nil {
			logger.Warn("sync: load failed", slog.String("kind", string(f.Kind)), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: loaded", slog.String("kind", string(f.Kind)), slog.Int("count", len(rows)))
		changed = append(changed, f.Kind)
	}

	for k := range checksums {
		if _, ok := disk[k]; ok {
			continue
		}
		if err := db.DropKind(k); err != nil {
			logger.Warn("sync: drop failed", slog.String("kind", string(k)), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: dropped", slog.String("kind", string(k)))
		changed = append(changed, k)
	}

	return changed, nil
}

// decodeRows splits a data file into entity rows. Each element is decoded
// into its typed model first so malformed data never reaches the database.
func decodeRows(kind models.Kind, data []byte) ([]EntityRow, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array: %w", kind, err)
	}
	rows := make([]EntityRow, 0, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for i, raw := range elems {
		id, err := entityID(raw)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
		if err := validate(kind, raw); err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, id, err)
		}
		// Generated files may repeat an id; the first one wins.
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, EntityRow{ID: id, Body: raw})
	}
	return rows, nil
}

// entityID reads the "id" member, which must be a non-empty string.
func entityID(raw json.RawMessage) (string, error) {
	var head struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("id must be a string: %w", err)
	}
	if head.ID == nil || *head.ID == "" {
		return "", fmt.Errorf("missing id")
	}
	return *head.ID, nil
}

func validate(kind models.Kind, raw json.RawMessage) error {
	switch kind {
	case models.KindItem:
		var v models.Item
		return json.Unmarshal(raw, &v)
	case models.KindSkill:
		var v models.Skill
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		for _, p := range []models.Principle{v.Primary.ID, v.Secondary.ID} {
			if p != "" && !p.Valid() {
				return fmt.Errorf("unknown principle %q", p)
			}
		}
		return nil
	case models.KindAssistant:
		var v models.Assistant
		return json.Unmarshal(raw, &v)
	case models.KindWorkstation:
		var v models.Workstation
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		for _, p := range v.Principles {
			if !p.ID.Valid() {
				return fmt.Errorf("unknown principle %q", p.ID)
			}
		}
		return nil
	case models.KindRecipe:
		var v models.Recipe
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if v.Principle != "" && !v.Principle.Valid() {
			return fmt.Errorf("unknown principle %q", v.Principle)
		}
		return nil
	case models.KindPrinciple:
		var v models.PrincipleRef
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if !v.ID.Valid() {
			return fmt.Errorf("unknown principle %q", v.ID)
		}
		return nil
	default:
		var v models.Ref
		return json.Unmarshal(raw, &v)
	}
}
