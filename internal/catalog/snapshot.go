package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/starford/hours/internal/models"
)

// Snapshot is an immutable, typed view of the catalog. Callers must not
// mutate the slices it hands out.
type Snapshot struct {
	Aspects          []models.Aspect
	Principles       []models.PrincipleRef
	Wisdoms          []models.Wisdom
	WorkstationTypes []models.WorkstationType
	Items            []models.Item
	Skills           []models.Skill
	Assistants       []models.Assistant
	Workstations     []models.Workstation
	Recipes          []models.Recipe

	aspects      map[string]int
	items        map[string]int
	skills       map[string]int
	recipes      map[string]int
	assistants   map[string]int
	workstations map[string]int
}

// LoadSnapshot decodes every kind from the database and derives the
// relations that are not stored: aspect → assistants, and slot order.
func LoadSnapshot(db *DB) (*Snapshot, error) {
	s := &Snapshot{}
	if err := decodeKind(db, models.KindAspect, &s.Aspects); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindPrinciple, &s.Principles); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindWisdom, &s.Wisdoms); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindWorkstationType, &s.WorkstationTypes); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindItem, &s.Items); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindSkill, &s.Skills); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindAssistant, &s.Assistants); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindWorkstation, &s.Workstations); err != nil {
		return nil, err
	}
	if err := decodeKind(db, models.KindRecipe, &s.Recipes); err != nil {
		return nil, err
	}
	s.derive()
	return s, nil
}

func decodeKind[T any](db *DB, kind models.Kind, dst *[]T) error {
	bodies, err := db.Bodies(kind)
	if err != nil {
		return err
	}
	out := make([]T, 0, len(bodies))
	for _, b := range bodies {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("catalog: decode %s: %w", kind, err)
		}
		out = append(out, v)
	}
	*dst = out
	return nil
}

func (s *Snapshot) derive() {
	s.aspects = indexBy(s.Aspects, func(v models.Aspect) string { return v.ID })
	s.items = indexBy(s.Items, func(v models.Item) string { return v.ID })
	s.skills = indexBy(s.Skills, func(v models.Skill) string { return v.ID })
	s.recipes = indexBy(s.Recipes, func(v models.Recipe) string { return v.ID })
	s.assistants = indexBy(s.Assistants, func(v models.Assistant) string { return v.ID })
	s.workstations = indexBy(s.Workstations, func(v models.Workstation) string { return v.ID })

	for i := range s.Workstations {
		slots := slices.Clone(s.Workstations[i].Slots)
		slices.SortStableFunc(slots, func(a, b models.Slot) int { return a.Index - b.Index })
		s.Workstations[i].Slots = slots
	}

	byAspect := make(map[string][]models.Ref)
	for _, a := range s.Assistants {
		for _, asp := range a.SpecialAspects {
			byAspect[asp.ID] = append(byAspect[asp.ID], models.Ref{ID: a.ID})
		}
	}
	for i := range s.Aspects {
		refs := byAspect[s.Aspects[i].ID]
		if refs == nil {
			refs = []models.Ref{}
		}
		s.Aspects[i].Assistants = refs
	}
}

func indexBy[T any](vs []T, key func(T) string) map[string]int {
	m := make(map[string]int, len(vs))
	for i, v := range vs {
		m[key(v)] = i
	}
	return m
}

// Aspect looks up an aspect by id.
func (s *Snapshot) Aspect(id string) (models.Aspect, bool) {
	i, ok := s.aspects[id]
	if !ok {
		return models.Aspect{}, false
	}
	return s.Aspects[i], true
}

// Item looks up an item by id.
func (s *Snapshot) Item(id string) (models.Item, bool) {
	i, ok := s.items[id]
	if !ok {
		return models.Item{}, false
	}
	return s.Items[i], true
}

// Skill looks up a skill by id.
func (s *Snapshot) Skill(id string) (models.Skill, bool) {
	i, ok := s.skills[id]
	if !ok {
		return models.Skill{}, false
	}
	return s.Skills[i], true
}

// Recipe looks up a recipe by id.
func (s *Snapshot) Recipe(id string) (models.Recipe, bool) {
	i, ok := s.recipes[id]
	if !ok {
		return models.Recipe{}, false
	}
	return s.Recipes[i], true
}

// Assistant looks up an assistant by id.
func (s *Snapshot) Assistant(id string) (models.Assistant, bool) {
	i, ok := s.assistants[id]
	if !ok {
		return models.Assistant{}, false
	}
	return s.Assistants[i], true
}

// Workstation looks up a workstation by id.
func (s *Snapshot) Workstation(id string) (models.Workstation, bool) {
	i, ok := s.workstations[id]
	if !ok {
		return models.Workstation{}, false
	}
	return s.Workstations[i], true
}

// ProductRecipes returns the recipes that produce the item.
func (s *Snapshot) ProductRecipes(itemID string) []models.Recipe {
	var out []models.Recipe
	for _, r := range s.Recipes {
		if r.Product.ID == itemID {
			out = append(out, r)
		}
	}
	return out
}

// Entities returns every entity of kind as JSON-encodable values, in
// catalog order.
func (s *Snapshot) Entities(kind models.Kind) ([]any, bool) {
	switch kind {
	case models.KindAspect:
		return anySlice(s.Aspects), true
	case models.KindPrinciple:
		return anySlice(s.Principles), true
	case models.KindWisdom:
		return anySlice(s.Wisdoms), true
	case models.KindWorkstationType:
		return anySlice(s.WorkstationTypes), true
	case models.KindItem:
		return anySlice(s.Items), true
	case models.KindSkill:
		return anySlice(s.Skills), true
	case models.KindAssistant:
		return anySlice(s.Assistants), true
	case models.KindWorkstation:
		return anySlice(s.Workstations), true
	case models.KindRecipe:
		return anySlice(s.Recipes), true
	}
	return nil, false
}

// Entity returns the entity of kind with the given id.
func (s *Snapshot) Entity(kind models.Kind, id string) (any, bool) {
	switch kind {
	case models.KindAspect:
		return found(s.Aspect(id))
	case models.KindPrinciple:
		return find(s.Principles, func(v models.PrincipleRef) bool { return string(v.ID) == id })
	case models.KindWisdom:
		return find(s.Wisdoms, func(v models.Wisdom) bool { return v.ID == id })
	case models.KindWorkstationType:
		return find(s.WorkstationTypes, func(v models.WorkstationType) bool { return v.ID == id })
	case models.KindItem:
		return found(s.Item(id))
	case models.KindSkill:
		return found(s.Skill(id))
	case models.KindAssistant:
		return found(s.Assistant(id))
	case models.KindWorkstation:
		return found(s.Workstation(id))
	case models.KindRecipe:
		return found(s.Recipe(id))
	}
	return nil, false
}

func found[T any](v T, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	return v, true
}

func find[T any](vs []T, match func(T) bool) (any, bool) {
	if i := slices.IndexFunc(vs, match); i >= 0 {
		return vs[i], true
	}
	return nil, false
}

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// Holder keeps the current snapshot and swaps it atomically on reload.
type Holder struct {
	db  *DB
	cur atomic.Pointer[Snapshot]
}

// NewHolder loads the initial snapshot.
func NewHolder(db *DB) (*Holder, error) {
	h := &Holder{db: db}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// Current returns the latest snapshot.
func (h *Holder) Current() *Snapshot {
	return h.cur.Load()
}

// Reload rebuilds the snapshot from the database.
func (h *Holder) Reload() error {
	s, err := LoadSnapshot(h.db)
	if err != nil {
		return err
	}
	h.cur.Store(s)
	return nil
}
