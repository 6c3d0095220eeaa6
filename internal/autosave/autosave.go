// Package autosave reads player progress out of the game's AUTOSAVE.json.
//
// The save is a large, loosely structured document; only a handful of
// paths are read and everything is matched against the catalog so ids
// the catalog does not know are ignored.
package autosave

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/starford/hours/internal/apperr"
	"github.com/starford/hours/internal/catalog"
	"github.com/starford/hours/internal/models"
)

const (
	pathCharacter = "CharacterCreationCommands.0"
	pathSpheres   = "RootPopulationCommand.Spheres"
	skillsSphere  = "hand.skills"

	mutationSkill     = "skill"
	mutationCommitted = "wisdom.committed"
	prefixWisdom      = "w."
	prefixSoul        = "a."
)

// ReadFile parses the autosave at path.
func ReadFile(path string, snap *catalog.Snapshot) (models.UserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.UserData{}, fmt.Errorf("autosave: read: %w", err)
	}
	return Parse(data, snap)
}

// Parse extracts known items, skills and recipes from an autosave document.
func Parse(data []byte, snap *catalog.Snapshot) (models.UserData, error) {
	if !gjson.ValidBytes(data) {
		return models.UserData{}, fmt.Errorf("autosave: not valid JSON: %w", apperr.ErrInvalid)
	}
	doc := gjson.ParseBytes(data)

	character := doc.Get(pathCharacter)
	if !character.Exists() {
		return models.UserData{}, fmt.Errorf("autosave: %s missing: %w", pathCharacter, apperr.ErrInvalid)
	}

	skills, err := parseSkills(doc, snap)
	if err != nil {
		return models.UserData{}, err
	}

	ud := models.UserData{
		Items:   parseItems(character, snap),
		Skills:  skills,
		Recipes: parseRecipes(character, snap),
	}
	ud.Normalize()
	return ud, nil
}

func parseItems(character gjson.Result, snap *catalog.Snapshot) []models.ItemRef {
	var out []models.ItemRef
	seen := make(map[string]struct{})
	character.Get("UniqueElementsManifested").ForEach(func(_, v gjson.Result) bool {
		id := v.String()
		if _, ok := snap.Item(id); !ok {
			return true
		}
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
		out = append(out, models.ItemRef{ID: id})
		return true
	})
	return out
}

func parseSkills(doc gjson.Result, snap *catalog.Snapshot) ([]models.KnownSkill, error) {
	var sphere gjson.Result
	doc.Get(pathSpheres).ForEach(func(_, s gjson.Result) bool {
		if s.Get("GoverningSphereSpec.Id").String() == skillsSphere {
			sphere = s
			return false
		}
		return true
	})
	if !sphere.Exists() {
		return nil, fmt.Errorf("autosave: %s sphere missing: %w", skillsSphere, apperr.ErrInvalid)
	}

	var out []models.KnownSkill
	sphere.Get("Tokens").ForEach(func(_, tok gjson.Result) bool {
		payload := tok.Get("Payload")
		skill, ok := snap.Skill(payload.Get("EntityId").String())
		if !ok {
			return true
		}
		out = append(out, parseSkill(skill, payload.Get("Mutations"), snap))
		return true
	})
	return out, nil
}

// parseSkill reads one skill token. Mutation keys contain dots, so they are
// walked rather than addressed by path.
func parseSkill(skill models.Skill, mutations gjson.Result, snap *catalog.Snapshot) models.KnownSkill {
	ks := models.KnownSkill{ID: skill.ID, Level: 1}

	var committed bool
	var otherWisdom, soul string
	mutations.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		switch {
		case key == mutationSkill:
			ks.Level += int(v.Int())
		case key == mutationCommitted:
			committed = true
		case strings.HasPrefix(key, prefixWisdom) && otherWisdom == "":
			otherWisdom = strings.TrimPrefix(key, prefixWisdom)
		case strings.HasPrefix(key, prefixSoul) && soul == "":
			soul = strings.TrimPrefix(key, prefixSoul)
		}
		return true
	})

	if !committed {
		return ks
	}
	// The save names the wisdom the skill was not committed to.
	for _, w := range skill.Wisdoms {
		if !strings.EqualFold(w.ID, otherWisdom) {
			ks.CommittedWisdom = &models.Ref{ID: w.ID}
			break
		}
	}
	if soul != "" {
		if it, ok := snap.Item(soul); ok {
			ks.EvolvableSoul = &models.ItemRef{ID: it.ID}
		}
	}
	return ks
}

type recipeSkill struct {
	recipe string
	skill  string
}

// internalNames maps each recipe internal id to its recipe and the skill
// whose name appears in it.
func internalNames(snap *catalog.Snapshot) map[string]recipeSkill {
	out := make(map[string]recipeSkill)
	for _, r := range snap.Recipes {
		for _, in := range r.Internals {
			for _, s := range snap.Skills {
				if len(s.ID) <= 2 || !strings.Contains(in.ID, s.ID[2:]) {
					continue
				}
				out[in.ID] = recipeSkill{recipe: r.ID, skill: s.ID}
				break
			}
		}
	}
	return out
}

func parseRecipes(character gjson.Result, snap *catalog.Snapshot) []models.KnownRecipe {
	names := internalNames(snap)

	var out []models.KnownRecipe
	pos := make(map[string]int)
	character.Get("AmbittableRecipesUnlocked").ForEach(func(_, v gjson.Result) bool {
		rs, ok := names[v.String()]
		if !ok {
			return true
		}
		i, seen := pos[rs.recipe]
		if !seen {
			i = len(out)
			pos[rs.recipe] = i
			out = append(out, models.KnownRecipe{ID: rs.recipe})
		}
		out[i].Skills = append(out[i].Skills, models.Ref{ID: rs.skill})
		return true
	})
	return out
}
