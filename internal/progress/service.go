// Package progress stores what the player has unlocked: known items,
// learned skills and known recipes. It shares the catalog database.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/starford/hours/internal/apperr"
	"github.com/starford/hours/internal/autosave"
	"github.com/starford/hours/internal/catalog"
	"github.com/starford/hours/internal/checksum"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/overlay"
)

// Service coordinates the progress tables and the catalog.
type Service struct {
	db      *sql.DB
	catalog *catalog.Holder
}

// NewService creates a progress service over the catalog database.
func NewService(db *catalog.DB, holder *catalog.Holder) *Service {
	return &Service{db: db.SQL(), catalog: holder}
}

// Catalog returns the current catalog snapshot.
func (s *Service) Catalog() *catalog.Snapshot {
	return s.catalog.Current()
}

// UserData returns the stored progress document.
func (s *Service) UserData(ctx context.Context) (models.UserData, error) {
	var ud models.UserData

	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM known_items ORDER BY rowid`)
	if err != nil {
		return ud, fmt.Errorf("progress: items: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return ud, err
		}
		ud.Items = append(ud.Items, models.ItemRef{ID: id})
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT skill_id, level, committed_wisdom, evolvable_soul
		FROM skill_levels WHERE level > 0 ORDER BY skill_id`)
	if err != nil {
		return ud, fmt.Errorf("progress: skills: %w", err)
	}
	for rows.Next() {
		var ks models.KnownSkill
		var wisdom, soul string
		if err := rows.Scan(&ks.ID, &ks.Level, &wisdom, &soul); err != nil {
			rows.Close()
			return ud, err
		}
		if wisdom != "" {
			ks.CommittedWisdom = &models.Ref{ID: wisdom}
		}
		if soul != "" {
			ks.EvolvableSoul = &models.ItemRef{ID: soul}
		}
		ud.Skills = append(ud.Skills, ks)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT recipe_id, skill_id FROM known_recipes ORDER BY recipe_id, rowid`)
	if err != nil {
		return ud, fmt.Errorf("progress: recipes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var recipeID, skillID string
		if err := rows.Scan(&recipeID, &skillID); err != nil {
			return ud, err
		}
		if n := len(ud.Recipes); n == 0 || ud.Recipes[n-1].ID != recipeID {
			ud.Recipes = append(ud.Recipes, models.KnownRecipe{ID: recipeID})
		}
		if skillID != "" {
			last := &ud.Recipes[len(ud.Recipes)-1]
			last.Skills = append(last.Skills, models.Ref{ID: skillID})
		}
	}
	if err := rows.Err(); err != nil {
		return ud, err
	}

	ud.Normalize()
	return ud, nil
}

// SetSkillLevel records a new level for a catalog skill and returns the
// skill with that level. Level 0 forgets the skill.
func (s *Service) SetSkillLevel(ctx context.Context, id string, level int) (models.Skill, error) {
	if level < 0 {
		return models.Skill{}, fmt.Errorf("progress: level %d: %w", level, apperr.ErrInvalid)
	}
	skill, ok := s.Catalog().Skill(id)
	if !ok {
		return models.Skill{}, apperr.ErrNotFound
	}

	var err error
	if level == 0 {
		_, err = s.db.ExecContext(ctx, `DELETE FROM skill_levels WHERE skill_id = ?`, id)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO skill_levels (skill_id, level, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(skill_id) DO UPDATE SET
				level      = excluded.level,
				updated_at = excluded.updated_at
		`, id, level)
	}
	if err != nil {
		return models.Skill{}, fmt.Errorf("progress: set skill %q: %w", id, err)
	}

	skill.Level = level
	return skill, nil
}

// Import replaces all stored progress with ud.
func (s *Service) Import(ctx context.Context, ud models.UserData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("progress: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"known_items", "skill_levels", "known_recipes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("progress: clear %s: %w", table, err)
		}
	}

	for _, it := range ud.Items {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO known_items (item_id) VALUES (?)`, it.ID); err != nil {
			return fmt.Errorf("progress: insert item %q: %w", it.ID, err)
		}
	}
	for _, ks := range ud.Skills {
		if ks.Level < 0 {
			return fmt.Errorf("progress: skill %q level %d: %w", ks.ID, ks.Level, apperr.ErrInvalid)
		}
		var wisdom, soul string
		if ks.CommittedWisdom != nil {
			wisdom = ks.CommittedWisdom.ID
		}
		if ks.EvolvableSoul != nil {
			soul = ks.EvolvableSoul.ID
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO skill_levels (skill_id, level, committed_wisdom, evolvable_soul)
			VALUES (?, ?, ?, ?)`, ks.ID, ks.Level, wisdom, soul)
		if err != nil {
			return fmt.Errorf("progress: insert skill %q: %w", ks.ID, err)
		}
	}
	for _, kr := range ud.Recipes {
		skills := models.RefIDs(kr.Skills)
		if len(skills) == 0 {
			skills = []string{""}
		}
		for _, sk := range skills {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO known_recipes (recipe_id, skill_id) VALUES (?, ?)`, kr.ID, sk); err != nil {
				return fmt.Errorf("progress: insert recipe %q: %w", kr.ID, err)
			}
		}
	}

	return tx.Commit()
}

// ImportAutosave imports the autosave at path unless it is unchanged since
// the last import. It reports whether anything was imported.
func (s *Service) ImportAutosave(ctx context.Context, path string) (bool, error) {
	sum, err := checksum.File(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, apperr.ErrNotFound
		}
		return false, fmt.Errorf("progress: checksum autosave: %w", err)
	}

	var prev string
	err = s.db.QueryRowContext(ctx, `SELECT checksum FROM imports WHERE source = ?`, path).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("progress: import checksum: %w", err)
	}
	if prev == sum {
		return false, nil
	}

	ud, err := autosave.ReadFile(path, s.Catalog())
	if err != nil {
		return false, err
	}
	if err := s.Import(ctx, ud); err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO imports (source, checksum, imported_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source) DO UPDATE SET
			checksum    = excluded.checksum,
			imported_at = excluded.imported_at
	`, path, sum)
	if err != nil {
		return false, fmt.Errorf("progress: record import: %w", err)
	}
	return true, nil
}

// Reset forgets all progress and import history.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.Import(ctx, models.UserData{}); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM imports`); err != nil {
		return fmt.Errorf("progress: clear imports: %w", err)
	}
	return nil
}

// View is the catalog with progress overlaid.
type View struct {
	Catalog  *catalog.Snapshot
	UserData models.UserData
	Items    []models.Item
	Skills   []models.Skill
	Recipes  []models.Recipe
}

// View overlays the stored progress on the current catalog.
func (s *Service) View(ctx context.Context) (*View, error) {
	ud, err := s.UserData(ctx)
	if err != nil {
		return nil, err
	}
	snap := s.Catalog()
	return &View{
		Catalog:  snap,
		UserData: ud,
		Items:    overlay.Items(snap.Items, ud),
		Skills:   overlay.Skills(snap.Skills, ud),
		Recipes:  overlay.Recipes(snap.Recipes, ud.Recipes),
	}, nil
}
