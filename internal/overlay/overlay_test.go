package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/hours/internal/models"
)

func TestItems(t *testing.T) {
	items := []models.Item{
		{ID: "candle", Known: true},
		{ID: "lamp"},
		{ID: "ink"},
	}
	ud := models.UserData{Items: []models.ItemRef{{ID: "lamp"}, {ID: "ghost"}}}

	got := Items(items, ud)

	require.Len(t, got, 3)
	assert.False(t, got[0].Known, "catalog flag is overwritten")
	assert.True(t, got[1].Known)
	assert.False(t, got[2].Known)
	assert.True(t, items[0].Known, "input must not be mutated")
}

func TestSkills(t *testing.T) {
	skills := []models.Skill{{ID: "s.a", Level: 3}, {ID: "s.b"}}
	ud := models.UserData{Skills: []models.KnownSkill{{ID: "s.b", Level: 2}}}

	got := Skills(skills, ud)

	assert.Equal(t, 0, got[0].Level)
	assert.Equal(t, 2, got[1].Level)
	assert.Equal(t, 3, skills[0].Level)
}

func TestRecipes(t *testing.T) {
	recipes := []models.Recipe{
		{ID: "r.z", Skills: models.Refs("s.a", "s.b")},
		{ID: "r.a", Skills: models.Refs("s.a")},
		{ID: "r.unknown", Skills: models.Refs("s.c")},
	}
	known := []models.KnownRecipe{
		{ID: "r.z", Skills: models.Refs("s.b")},
		{ID: "r.a"},
		{ID: "r.missing", Skills: models.Refs("s.a")},
	}

	got := Recipes(recipes, known)

	require.Len(t, got, 2)
	assert.Equal(t, "r.a", got[0].ID)
	assert.Empty(t, got[0].Skills)
	assert.NotNil(t, got[0].Skills)
	assert.Equal(t, "r.z", got[1].ID)
	assert.Equal(t, models.Refs("s.b"), got[1].Skills)
	assert.Equal(t, models.Refs("s.a", "s.b"), recipes[0].Skills)
}

func TestApplySkillUpdate(t *testing.T) {
	skills := []models.Skill{{ID: "s.a", Level: 1}, {ID: "s.b", Level: 4}}

	got := ApplySkillUpdate(skills, models.Skill{ID: "s.a", Level: 2})
	assert.Equal(t, 2, got[0].Level)
	assert.Equal(t, 4, got[1].Level)
	assert.Equal(t, 1, skills[0].Level)

	got = ApplySkillUpdate(skills, models.Skill{ID: "s.none", Level: 9})
	assert.Equal(t, skills, got)
}

func TestSortSkills(t *testing.T) {
	skills := []models.Skill{{ID: "s.c", Level: 1}, {ID: "s.a", Level: 5}, {ID: "s.b", Level: 1}}

	byID := SortSkills(skills, false)
	assert.Equal(t, []string{"s.a", "s.b", "s.c"}, ids(byID))

	byLevel := SortSkills(skills, true)
	assert.Equal(t, []string{"s.a", "s.c", "s.b"}, ids(byLevel))
}

func ids(skills []models.Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.ID
	}
	return out
}
