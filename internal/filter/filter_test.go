package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/hours/internal/models"
)

func item(id string, known bool, values models.PrincipleValues, aspects ...string) models.Item {
	return models.Item{ID: id, Name: id, Known: known, Values: values, Aspects: models.Refs(aspects...)}
}

func visibleIDs(vs []Visible[models.Item]) []string {
	out := []string{}
	for _, it := range Ordered(vs) {
		out = append(out, it.ID)
	}
	return out
}

func TestApply_PreservesLengthAndOrder(t *testing.T) {
	items := []models.Item{
		item("a", true, models.PrincipleValues{models.Edge: 1}, "tool"),
		item("b", false, nil),
		item("c", true, models.PrincipleValues{models.Moon: 3}, "memory"),
	}
	specs := []Spec{
		{},
		{Known: true},
		{Principles: []models.Principle{models.Edge, models.Moon}},
		{Aspects: []string{"nothing"}},
		{Known: true, Principles: []models.Principle{models.Winter}, Aspects: []string{"tool"}},
	}
	for _, spec := range specs {
		got := Apply(items, spec)
		require.Len(t, got, len(items))
		for i := range items {
			assert.Equal(t, items[i].ID, got[i].Entity.ID)
		}
	}
}

func TestApply_EmptySpecAllVisible(t *testing.T) {
	items := []models.Item{item("a", false, nil), item("b", true, nil)}

	got := Apply(items, Spec{})

	for i, v := range got {
		assert.True(t, v.Visible)
		assert.Equal(t, i, v.Index)
	}
}

func TestApply_Known(t *testing.T) {
	items := []models.Item{item("a", false, nil), item("b", true, nil), item("c", true, nil)}

	got := Apply(items, Spec{Known: true})

	assert.False(t, got[0].Visible)
	assert.Equal(t, -1, got[0].Index)
	assert.Equal(t, []string{"b", "c"}, visibleIDs(got))
}

func TestApply_SinglePrinciple(t *testing.T) {
	items := []models.Item{
		item("a", false, models.PrincipleValues{models.Edge: 2}),
		item("b", false, models.PrincipleValues{models.Edge: 5}),
		item("c", false, nil),
	}

	got := Apply(items, Spec{Principles: []models.Principle{models.Edge}})

	assert.Equal(t, []string{"b", "a"}, visibleIDs(got))
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 0, got[1].Index)
	assert.False(t, got[2].Visible)
}

func TestApply_ZeroValue(t *testing.T) {
	items := []models.Item{
		item("zero", false, models.PrincipleValues{models.Grail: 0}),
		item("one", false, models.PrincipleValues{models.Grail: 1}),
	}
	spec := Spec{Principles: []models.Principle{models.Grail}}

	assert.Equal(t, []string{"one"}, visibleIDs(Apply(items, spec)))

	spec.IncludeZero = true
	assert.Equal(t, []string{"one", "zero"}, visibleIDs(Apply(items, spec)))
}

func TestApply_MultiplePrinciplesFirstMatchWins(t *testing.T) {
	items := []models.Item{
		item("both", false, models.PrincipleValues{models.Edge: 1, models.Forge: 9}),
		item("edge", false, models.PrincipleValues{models.Edge: 4}),
		item("forge", false, models.PrincipleValues{models.Forge: 2}),
	}

	got := Apply(items, Spec{Principles: []models.Principle{models.Edge, models.Forge}})

	// Concatenation is [edge, both, both, forge]; "both" keeps position 1.
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 0, got[1].Index)
	assert.Equal(t, 3, got[2].Index)
	assert.Equal(t, []string{"edge", "both", "forge"}, visibleIDs(got))
}

func TestApply_StableWithinPrinciple(t *testing.T) {
	items := []models.Item{
		item("x", false, models.PrincipleValues{models.Sky: 2}),
		item("y", false, models.PrincipleValues{models.Sky: 2}),
	}

	got := Apply(items, Spec{Principles: []models.Principle{models.Sky}})

	assert.Equal(t, []string{"x", "y"}, visibleIDs(got))
}

func TestApply_Aspects(t *testing.T) {
	items := []models.Item{
		item("a", false, nil, "tool", "device"),
		item("b", false, nil, "memory"),
		item("c", false, nil),
	}

	got := Apply(items, Spec{Aspects: []string{"device", "beverage"}})

	assert.Equal(t, []string{"a"}, visibleIDs(got))
}

func TestApply_Combined(t *testing.T) {
	items := []models.Item{
		item("all", true, models.PrincipleValues{models.Lantern: 2}, "tool"),
		item("unknown", false, models.PrincipleValues{models.Lantern: 9}, "tool"),
		item("noPrinciple", true, nil, "tool"),
		item("noAspect", true, models.PrincipleValues{models.Lantern: 5}),
		item("best", true, models.PrincipleValues{models.Lantern: 7}, "tool"),
	}

	got := Apply(items, Spec{
		Known:      true,
		Principles: []models.Principle{models.Lantern},
		Aspects:    []string{"tool"},
	})

	assert.Equal(t, []string{"best", "all"}, visibleIDs(got))
}

func TestApply_NothingMatches(t *testing.T) {
	items := []models.Item{item("a", false, nil), item("b", false, nil)}

	got := Apply(items, Spec{Known: true})

	for _, v := range got {
		assert.False(t, v.Visible)
	}
	assert.Empty(t, Ordered(got))
}

func TestItems(t *testing.T) {
	items := []models.Item{
		item("a", false, models.PrincipleValues{models.Heart: 1}),
		item("b", false, models.PrincipleValues{models.Heart: 3}),
	}
	got := Items(items, Spec{Principles: []models.Principle{models.Heart}})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
}
