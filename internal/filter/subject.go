package filter

import (
	"github.com/starford/hours/internal/models"
)

// SubjectKind discriminates Subject.
type SubjectKind int

const (
	KindItem SubjectKind = iota + 1
	KindSkill
	KindWorkstation
	KindAssistant
	KindSlot
)

func (k SubjectKind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindSkill:
		return "skill"
	case KindWorkstation:
		return "workstation"
	case KindAssistant:
		return "assistant"
	case KindSlot:
		return "slot"
	}
	return "unknown"
}

// Subject is any entity that principles or aspects can be read from.
// Exactly the field named by Kind is set.
type Subject struct {
	Kind        SubjectKind
	Item        *models.Item
	Skill       *models.Skill
	Workstation *models.Workstation
	Assistant   *models.Assistant
	Slot        *models.Slot
}

func ItemSubject(v models.Item) Subject { return Subject{Kind: KindItem, Item: &v} }
func SkillSubject(v models.Skill) Subject { return Subject{Kind: KindSkill, Skill: &v} }
func AssistantSubject(v models.Assistant) Subject { return Subject{Kind: KindAssistant, Assistant: &v} }
func SlotSubject(v models.Slot) Subject { return Subject{Kind: KindSlot, Slot: &v} }

func WorkstationSubject(v models.Workstation) Subject {
	return Subject{Kind: KindWorkstation, Workstation: &v}
}

// Principles returns the principles associated with s:
//   - skill: primary then secondary
//   - workstation, assistant: their explicit list
//   - item: every principle with a strictly positive value, canonical order
//   - slot: none
func Principles(s Subject) []models.Principle {
	switch s.Kind {
	case KindSkill:
		return []models.Principle{s.Skill.Primary.ID, s.Skill.Secondary.ID}
	case KindWorkstation:
		out := make([]models.Principle, len(s.Workstation.Principles))
		for i, p := range s.Workstation.Principles {
			out[i] = p.ID
		}
		return out
	case KindAssistant:
		return s.Assistant.Principles()
	case KindItem:
		return s.Item.Values.Present()
	}
	return nil
}

// Aspects returns the aspect ids associated with s: an item's aspects, the
// aspects a slot accepts, or an assistant's accepted aspects.
func Aspects(s Subject) []string {
	switch s.Kind {
	case KindItem:
		return s.Item.AspectIDs()
	case KindSlot:
		return models.RefIDs(s.Slot.Accepts)
	case KindAssistant:
		return models.RefIDs(s.Assistant.AcceptedAspects())
	case KindWorkstation:
		var out []string
		for _, sl := range s.Workstation.Slots {
			out = append(out, models.RefIDs(sl.Accepts)...)
		}
		return out
	}
	return nil
}

// FilterPrinciples keeps the subjects sharing at least one principle with
// principles.
func FilterPrinciples(subjects []Subject, principles []models.Principle) []Subject {
	want := make(map[string]struct{}, len(principles))
	for _, p := range principles {
		want[string(p)] = struct{}{}
	}
	var out []Subject
	for _, s := range subjects {
		ps := Principles(s)
		ids := make([]string, len(ps))
		for i, p := range ps {
			ids[i] = string(p)
		}
		if intersects(ids, want) {
			out = append(out, s)
		}
	}
	return out
}

// FilterAspects keeps the subjects sharing at least one aspect with aspects.
func FilterAspects(subjects []Subject, aspects []string) []Subject {
	want := make(map[string]struct{}, len(aspects))
	for _, a := range aspects {
		want[a] = struct{}{}
	}
	var out []Subject
	for _, s := range subjects {
		if intersects(Aspects(s), want) {
			out = append(out, s)
		}
	}
	return out
}

// Skills returns the learned skills when principles is empty, otherwise
// every skill whose primary or secondary principle is requested.
func Skills(skills []models.Skill, principles []models.Principle) []models.Skill {
	if len(principles) == 0 {
		var out []models.Skill
		for _, s := range skills {
			if s.Level > 0 {
				out = append(out, s)
			}
		}
		return out
	}
	var out []models.Skill
	for _, s := range FilterPrinciples(subjects(skills, SkillSubject), principles) {
		out = append(out, *s.Skill)
	}
	return out
}

// Workstations keeps the workstations matching principles (any) and, when
// aspects is non-empty, having a slot that accepts one of aspects.
func Workstations(ws []models.Workstation, principles []models.Principle, aspects []string) []models.Workstation {
	subs := subjects(ws, WorkstationSubject)
	if len(principles) > 0 {
		subs = FilterPrinciples(subs, principles)
	}
	if len(aspects) > 0 {
		subs = FilterAspects(subs, aspects)
	}
	out := make([]models.Workstation, 0, len(subs))
	for _, s := range subs {
		out = append(out, *s.Workstation)
	}
	return out
}

func subjects[T any](vs []T, wrap func(T) Subject) []Subject {
	out := make([]Subject, len(vs))
	for i, v := range vs {
		out[i] = wrap(v)
	}
	return out
}
