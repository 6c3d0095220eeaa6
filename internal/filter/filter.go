// Package filter computes which catalog entities are visible under a
// filter and in what order. It never drops or reorders its input; it only
// annotates it.
package filter

import (
	"slices"

	"github.com/starford/hours/internal/models"
)

// Filterable is an entity with a progress flag, sparse principle values
// and aspects. models.Item implements it.
type Filterable interface {
	IsKnown() bool
	Value(p models.Principle) (int, bool)
	AspectIDs() []string
}

// Spec selects entities. Zero-valued fields do not filter.
type Spec struct {
	Known      bool
	Principles []models.Principle
	Aspects    []string

	// IncludeZero makes a principle value of exactly 0 count as present.
	// Null or absent values never count.
	IncludeZero bool
}

// Empty reports whether the spec filters nothing.
func (s Spec) Empty() bool {
	return !s.Known && len(s.Principles) == 0 && len(s.Aspects) == 0
}

func (s Spec) present(v int, ok bool) bool {
	if !ok {
		return false
	}
	return v > 0 || (s.IncludeZero && v == 0)
}

// Visible annotates one entity. Index is the entity's position among the
// visible entities, or -1 when it is hidden.
type Visible[T any] struct {
	Entity  T
	Visible bool
	Index   int
}

// Apply returns one annotation per entity, in input order.
//
// The narrowing steps run in a fixed order: known, then principles, then
// aspects. For principles, each requested principle contributes the
// candidates that have it, sorted by that principle's value descending,
// and the contributions are concatenated in request order. An entity that
// has several requested principles appears once per principle; its index
// is the first of those positions.
func Apply[T Filterable](entities []T, spec Spec) []Visible[T] {
	cands := make([]int, 0, len(entities))
	for i := range entities {
		cands = append(cands, i)
	}

	if spec.Known {
		cands = slices.DeleteFunc(cands, func(i int) bool { return !entities[i].IsKnown() })
	}

	if len(spec.Principles) > 0 {
		var merged []int
		for _, p := range spec.Principles {
			var sub []int
			for _, i := range cands {
				if spec.present(entities[i].Value(p)) {
					sub = append(sub, i)
				}
			}
			slices.SortStableFunc(sub, func(a, b int) int {
				va, _ := entities[a].Value(p)
				vb, _ := entities[b].Value(p)
				return vb - va
			})
			merged = append(merged, sub...)
		}
		cands = merged
	}

	if len(spec.Aspects) > 0 {
		want := make(map[string]struct{}, len(spec.Aspects))
		for _, a := range spec.Aspects {
			want[a] = struct{}{}
		}
		cands = slices.DeleteFunc(cands, func(i int) bool {
			return !intersects(entities[i].AspectIDs(), want)
		})
	}

	index := make(map[int]int, len(cands))
	for pos, i := range cands {
		if _, seen := index[i]; !seen {
			index[i] = pos
		}
	}

	out := make([]Visible[T], len(entities))
	for i, e := range entities {
		pos, ok := index[i]
		if !ok {
			pos = -1
		}
		out[i] = Visible[T]{Entity: e, Visible: ok, Index: pos}
	}
	return out
}

// Ordered returns the visible entities sorted by their index.
func Ordered[T any](vs []Visible[T]) []T {
	shown := make([]Visible[T], 0, len(vs))
	for _, v := range vs {
		if v.Visible {
			shown = append(shown, v)
		}
	}
	slices.SortStableFunc(shown, func(a, b Visible[T]) int { return a.Index - b.Index })
	out := make([]T, len(shown))
	for i, v := range shown {
		out[i] = v.Entity
	}
	return out
}

// Items is Apply followed by Ordered for the common item case.
func Items(items []models.Item, spec Spec) []models.Item {
	return Ordered(Apply(items, spec))
}

func intersects(ids []string, want map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := want[id]; ok {
			return true
		}
	}
	return false
}
