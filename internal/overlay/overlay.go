// Package overlay merges user progress into catalog entities. Every
// function returns fresh slices; the catalog passed in is never modified.
package overlay

import (
	"slices"
	"strings"

	"github.com/starford/hours/internal/models"
)

// Items marks the items named in ud as known. Every other item is unknown,
// whatever its catalog flag says.
func Items(items []models.Item, ud models.UserData) []models.Item {
	known := make(map[string]struct{}, len(ud.Items))
	for _, ref := range ud.Items {
		known[ref.ID] = struct{}{}
	}
	out := make([]models.Item, len(items))
	for i, it := range items {
		_, it.Known = known[it.ID]
		out[i] = it
	}
	return out
}

// Skills overwrites skill levels from ud. Skills the player has not
// learned are reset to level 0.
func Skills(skills []models.Skill, ud models.UserData) []models.Skill {
	levels := make(map[string]int, len(ud.Skills))
	for _, ks := range ud.Skills {
		levels[ks.ID] = ks.Level
	}
	out := make([]models.Skill, len(skills))
	for i, s := range skills {
		s.Level = levels[s.ID]
		out[i] = s
	}
	return out
}

// Recipes returns the catalog recipes the player knows, each carrying the
// skills it was unlocked through rather than every skill that can make it.
// The result is sorted by id.
func Recipes(recipes []models.Recipe, known []models.KnownRecipe) []models.Recipe {
	byID := make(map[string]models.KnownRecipe, len(known))
	for _, kr := range known {
		byID[kr.ID] = kr
	}
	out := make([]models.Recipe, 0, len(known))
	for _, r := range recipes {
		kr, ok := byID[r.ID]
		if !ok {
			continue
		}
		r.Skills = slices.Clone(kr.Skills)
		if r.Skills == nil {
			r.Skills = []models.Ref{}
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.Recipe) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ApplySkillUpdate replaces the skill with the same id as updated. Skills
// not in the list are ignored.
func ApplySkillUpdate(skills []models.Skill, updated models.Skill) []models.Skill {
	out := make([]models.Skill, len(skills))
	for i, s := range skills {
		if s.ID == updated.ID {
			s = updated
		}
		out[i] = s
	}
	return out
}

// SortSkills orders skills by id, or by level descending when byLevel is
// set. The sort is stable so equal levels keep their relative order.
func SortSkills(skills []models.Skill, byLevel bool) []models.Skill {
	out := slices.Clone(skills)
	if byLevel {
		slices.SortStableFunc(out, func(a, b models.Skill) int { return b.Level - a.Level })
		return out
	}
	slices.SortStableFunc(out, func(a, b models.Skill) int { return strings.Compare(a.ID, b.ID) })
	return out
}
