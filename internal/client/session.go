package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/overlay"
)

// Session is a client-side view of the catalog with progress overlaid.
// It is loaded once and updated only through its own commands.
type Session struct {
	client *Client

	mu      sync.RWMutex
	items   []models.Item
	skills  []models.Skill
	recipes []models.Recipe
	user    models.UserData
}

// NewSession creates an empty session.
func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// Load fetches the catalog and the user data. A failed user-data fetch is
// logged and the session continues with no progress; catalog failures are
// returned.
func (s *Session) Load(ctx context.Context) error {
	items, err := s.client.Items(ctx)
	if err != nil {
		return err
	}
	skills, err := s.client.Skills(ctx)
	if err != nil {
		return err
	}
	recipes, err := s.client.Recipes(ctx)
	if err != nil {
		return err
	}

	ud, err := s.client.UserData(ctx)
	if err != nil {
		s.client.logger.Warn("session: user data unavailable, continuing without progress",
			slog.String("error", err.Error()))
		ud = models.UserData{}
		ud.Normalize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = ud
	s.items = overlay.Items(items, ud)
	s.skills = overlay.Skills(skills, ud)
	s.recipes = overlay.Recipes(recipes, ud.Recipes)
	return nil
}

// Items returns the items with known flags applied.
func (s *Session) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Skills returns the skills with levels applied.
func (s *Session) Skills() []models.Skill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skills
}

// KnownRecipes returns the recipes the player knows, sorted by id.
func (s *Session) KnownRecipes() []models.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipes
}

// UserData returns the progress document the session was loaded with.
func (s *Session) UserData() models.UserData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IncrementSkill raises a skill by one level. The request is sent first;
// local state changes only once the service has echoed the updated skill.
// On error the session is unchanged.
func (s *Session) IncrementSkill(ctx context.Context, id string) (models.Skill, error) {
	s.mu.RLock()
	level := 0
	for _, sk := range s.skills {
		if sk.ID == id {
			level = sk.Level
			break
		}
	}
	s.mu.RUnlock()

	updated, err := s.client.SetSkillLevel(ctx, id, level+1)
	if err != nil {
		return models.Skill{}, err
	}
	s.client.InvalidateCache()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = overlay.ApplySkillUpdate(s.skills, updated)
	return updated, nil
}
