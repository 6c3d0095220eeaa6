package models

import "fmt"

// Principle is one of the thirteen fixed principles.
type Principle string

const (
	Edge    Principle = "edge"
	Forge   Principle = "forge"
	Grail   Principle = "grail"
	Heart   Principle = "heart"
	Knock   Principle = "knock"
	Lantern Principle = "lantern"
	Moon    Principle = "moon"
	Moth    Principle = "moth"
	Nectar  Principle = "nectar"
	Rose    Principle = "rose"
	Scale   Principle = "scale"
	Sky     Principle = "sky"
	Winter  Principle = "winter"
)

// AllPrinciples is the closed set of principles in canonical order.
var AllPrinciples = []Principle{
	Edge, Forge, Grail, Heart, Knock, Lantern, Moon,
	Moth, Nectar, Rose, Scale, Sky, Winter,
}

// Valid reports whether p is a member of the closed set.
func (p Principle) Valid() bool {
	for _, q := range AllPrinciples {
		if p == q {
			return true
		}
	}
	return false
}

// ParsePrinciple validates s as a principle name.
func ParsePrinciple(s string) (Principle, error) {
	p := Principle(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown principle %q", s)
	}
	return p, nil
}

// PrincipleRef is the {"id": principle} object form.
type PrincipleRef struct {
	ID Principle `json:"id"`
}

// PrincipleValues is a sparse principle → amount mapping.
type PrincipleValues map[Principle]int

// Present returns the principles with a strictly positive value, in
// canonical order.
func (v PrincipleValues) Present() []Principle {
	var out []Principle
	for _, p := range AllPrinciples {
		if v[p] > 0 {
			out = append(out, p)
		}
	}
	return out
}
