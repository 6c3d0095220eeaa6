// Package models defines the catalog and progress types shared by the
// companion service and its clients.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind names a catalog table. The value doubles as the data file stem
// (item.json) and the REST path segment (/item).
type Kind string

const (
	KindAspect          Kind = "aspect"
	KindPrinciple       Kind = "principle"
	KindWisdom          Kind = "wisdom"
	KindItem            Kind = "item"
	KindSkill           Kind = "skill"
	KindAssistant       Kind = "assistant"
	KindWorkstation     Kind = "workstation"
	KindWorkstationType Kind = "workstation_type"
	KindRecipe          Kind = "recipe"
)

// AllKinds lists every catalog kind in load order: referenced kinds come
// before the kinds that reference them.
var AllKinds = []Kind{
	KindAspect,
	KindPrinciple,
	KindWisdom,
	KindWorkstationType,
	KindItem,
	KindSkill,
	KindAssistant,
	KindWorkstation,
	KindRecipe,
}

// ParseKind resolves a table name. Capitalised names are accepted.
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// Ref is a reference to an entity by id, as it appears in data files
// and graph responses ({"id": "..."}).
type Ref struct {
	ID string `json:"id"`
}

// Refs builds a slice of refs from ids.
func Refs(ids ...string) []Ref {
	out := make([]Ref, len(ids))
	for i, id := range ids {
		out[i] = Ref{ID: id}
	}
	return out
}

// RefIDs returns the ids of refs in order.
func RefIDs(refs []Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

// Aspect is a tag attached to items and workstation slots.
type Aspect struct {
	ID         string `json:"id"`
	Assistants []Ref  `json:"assistants"`
}

// Wisdom is a skill tree a skill can be committed to.
type Wisdom struct {
	ID string `json:"id"`
}

// WorkstationType groups workstations.
type WorkstationType struct {
	ID string `json:"id"`
}

// Skill is a learnable ability. Level 0 means not learned.
type Skill struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Level     int          `json:"level"`
	Primary   PrincipleRef `json:"primary_principle"`
	Secondary PrincipleRef `json:"secondary_principle"`
	Wisdoms   []Ref        `json:"wisdoms,omitempty"`
}

// PrincipleCount pairs a principle with an amount.
type PrincipleCount struct {
	Principle Principle `json:"principle"`
	Count     int       `json:"count"`
}

// AssistantBaseAspects are accepted by every assistant in addition to its
// special aspects.
var AssistantBaseAspects = []string{"sustenance", "beverage", "memory", "tool", "device"}

// Assistant is a visitor who can help at a workstation.
type Assistant struct {
	ID             string           `json:"id"`
	Season         string           `json:"season,omitempty"`
	SpecialAspects []Ref            `json:"special_aspects"`
	BasePrinciples []PrincipleCount `json:"base_principles"`
}

// AcceptedAspects returns the special aspects followed by the base aspects,
// without duplicates.
func (a Assistant) AcceptedAspects() []Ref {
	seen := make(map[string]struct{}, len(a.SpecialAspects)+len(AssistantBaseAspects))
	out := make([]Ref, 0, len(a.SpecialAspects)+len(AssistantBaseAspects))
	for _, id := range append(RefIDs(a.SpecialAspects), AssistantBaseAspects...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Ref{ID: id})
	}
	return out
}

// Principles returns the principles the assistant contributes.
func (a Assistant) Principles() []Principle {
	out := make([]Principle, 0, len(a.BasePrinciples))
	for _, pc := range a.BasePrinciples {
		out = append(out, pc.Principle)
	}
	return out
}

// Slot is one input of a workstation.
type Slot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Accepts []Ref  `json:"accepts"`
}

// Workstation is a place where items are worked.
type Workstation struct {
	ID         string         `json:"id"`
	Principles []PrincipleRef `json:"principles"`
	Type       Ref            `json:"workstation_type"`
	Slots      []Slot         `json:"workstation_slots"`
	Evolves    *Ref           `json:"evolves,omitempty"`
}

// ItemRef references an item, optionally with its display name.
type ItemRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Recipe turns a source into a product given enough of a principle.
type Recipe struct {
	ID              string    `json:"id"`
	Principle       Principle `json:"principle"`
	PrincipleAmount int       `json:"principle_amount"`
	SourceAspect    *Ref      `json:"source_aspect,omitempty"`
	SourceItem      *ItemRef  `json:"source_item,omitempty"`
	Product         ItemRef   `json:"product"`
	CraftingAction  string    `json:"crafting_action,omitempty"`
	Skills          []Ref     `json:"skills"`
	Internals       []Ref     `json:"recipe_internals,omitempty"`
}

// Item is a card with principle values and aspects. Values is sparse: a
// principle absent from the map does not apply to the item.
type Item struct {
	ID          string
	Name        string
	Known       bool
	Values      PrincipleValues
	Aspects     []Ref
	IsCraftable bool
}

// Value returns the item's amount of p and whether it is present.
func (it Item) Value(p Principle) (int, bool) {
	v, ok := it.Values[p]
	return v, ok
}

// AspectIDs returns the ids of the item's aspects.
func (it Item) AspectIDs() []string { return RefIDs(it.Aspects) }

// IsKnown reports the progress flag.
func (it Item) IsKnown() bool { return it.Known }

// MarshalJSON flattens principle values into top-level nullable fields,
// matching the shape of the item table.
func (it Item) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(AllPrinciples)+5)
	m["id"] = it.ID
	m["name"] = it.Name
	m["known"] = it.Known
	m["is_craftable"] = it.IsCraftable
	aspects := it.Aspects
	if aspects == nil {
		aspects = []Ref{}
	}
	m["aspects"] = aspects
	for _, p := range AllPrinciples {
		if v, ok := it.Values[p]; ok {
			m[string(p)] = v
		} else {
			m[string(p)] = nil
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the flattened item shape. A null principle field is
// treated as absent. The name defaults to the id.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Item
	if err := unmarshalField(raw, "id", &out.ID); err != nil {
		return err
	}
	if err := unmarshalField(raw, "name", &out.Name); err != nil {
		return err
	}
	if err := unmarshalField(raw, "known", &out.Known); err != nil {
		return err
	}
	if err := unmarshalField(raw, "is_craftable", &out.IsCraftable); err != nil {
		return err
	}
	if err := unmarshalField(raw, "aspects", &out.Aspects); err != nil {
		return err
	}
	for _, p := range AllPrinciples {
		var v *int
		if err := unmarshalField(raw, string(p), &v); err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if *v < 0 {
			return fmt.Errorf("item %q: negative %s value %d", out.ID, p, *v)
		}
		if out.Values == nil {
			out.Values = make(PrincipleValues)
		}
		out.Values[p] = *v
	}
	if out.Name == "" {
		out.Name = out.ID
	}
	*it = out
	return nil
}

func unmarshalField(raw map[string]json.RawMessage, key string, dst any) error {
	msg, ok := raw[key]
	if !ok || string(msg) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}
