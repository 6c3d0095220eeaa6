// Package selection holds the drawer selection: a small ordered set of
// entity ids, each optionally tagged with a group that allows at most one
// member.
package selection

import (
	"slices"
	"sync"

	"github.com/starford/hours/internal/models"
)

// Entry is one selected entity. An empty Group means no group.
type Entry struct {
	ID    string `json:"id"`
	Group string `json:"group,omitempty"`
}

// Action is a state transition: Toggle or Clear.
type Action interface {
	isAction()
}

// Toggle selects or deselects ID. Selecting into a non-empty Group evicts
// the group's current member.
type Toggle struct {
	ID       string
	Selected bool
	Group    string
}

// Clear empties the selection.
type Clear struct{}

func (Toggle) isAction() {}
func (Clear) isAction() {}

// Reduce applies action to state and returns the next state. state is not
// modified.
func Reduce(state []Entry, action Action) []Entry {
	switch a := action.(type) {
	case Clear:
		return []Entry{}
	case Toggle:
		if !a.Selected {
			return slices.DeleteFunc(slices.Clone(state), func(e Entry) bool { return e.ID == a.ID })
		}
		next := slices.DeleteFunc(slices.Clone(state), func(e Entry) bool {
			return e.ID == a.ID || (a.Group != "" && e.Group == a.Group)
		})
		return append(next, Entry{ID: a.ID, Group: a.Group})
	}
	return slices.Clone(state)
}

// Store owns a selection and serialises transitions on it.
type Store struct {
	mu    sync.RWMutex
	state []Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: []Entry{}}
}

// Dispatch applies action and returns the resulting state.
func (s *Store) Dispatch(action Action) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return slices.Clone(s.state)
}

// State returns a copy of the current selection in selection order.
func (s *Store) State() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state)
}

// Selected returns the selected ids as a set.
func (s *Store) Selected() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.state))
	for _, e := range s.state {
		out[e.ID] = struct{}{}
	}
	return out
}

// Totals sums the principle values of the selected items, adding the base
// counts of an assistant when one is given. Principles whose total is zero
// are left out; the rest come in canonical order.
func Totals(items []models.Item, selected map[string]struct{}, base []models.PrincipleCount) []models.PrincipleCount {
	sum := make(map[models.Principle]int, len(models.AllPrinciples))
	for _, it := range items {
		if _, ok := selected[it.ID]; !ok {
			continue
		}
		for p, v := range it.Values {
			sum[p] += v
		}
	}
	for _, pc := range base {
		sum[pc.Principle] += pc.Count
	}

	var out []models.PrincipleCount
	for _, p := range models.AllPrinciples {
		if n := sum[p]; n != 0 {
			out = append(out, models.PrincipleCount{Principle: p, Count: n})
		}
	}
	return out
}
