package graph

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/starford/hours/internal/filter"
	"github.com/starford/hours/internal/models"
)

// types holds the object types; cyclic ones use field thunks.
type types struct {
	principleName   *graphql.Enum
	principle       *graphql.Object
	principleCount  *graphql.Object
	wisdom          *graphql.Object
	workstationType *graphql.Object
	ref             *graphql.Object
	aspect          *graphql.Object
	item            *graphql.Object
	skill           *graphql.Object
	assistant       *graphql.Object
	slot            *graphql.Object
	workstation     *graphql.Object
	recipe          *graphql.Object
}

var idArgs = graphql.FieldConfigArgument{
	"id": &graphql.ArgumentConfig{Type: graphql.String},
}

func newSchema() (graphql.Schema, error) {
	t := &types{}

	values := graphql.EnumValueConfigMap{}
	for _, p := range models.AllPrinciples {
		values[string(p)] = &graphql.EnumValueConfig{Value: string(p)}
	}
	t.principleName = graphql.NewEnum(graphql.EnumConfig{Name: "PrincipleName", Values: values})

	t.principle = graphql.NewObject(graphql.ObjectConfig{
		Name: "Principle",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return string(p.Source.(models.PrincipleRef).ID), nil
				},
			},
		},
	})

	t.principleCount = graphql.NewObject(graphql.ObjectConfig{
		Name: "PrincipleCount",
		Fields: graphql.Fields{
			"principle": &graphql.Field{
				Type: t.principleName,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return string(p.Source.(models.PrincipleCount).Principle), nil
				},
			},
			"count": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(models.PrincipleCount).Count, nil
				},
			},
		},
	})

	t.wisdom = idObject("Wisdom", func(src any) string { return src.(models.Wisdom).ID })
	t.workstationType = idObject("WorkstationType", func(src any) string { return src.(models.WorkstationType).ID })
	t.ref = idObject("Ref", func(src any) string { return src.(models.Ref).ID })

	t.aspect = graphql.NewObject(graphql.ObjectConfig{
		Name: "Aspect",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return p.Source.(models.Aspect).ID, nil
					},
				},
				"assistants": &graphql.Field{
					Type: graphql.NewList(t.assistant),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						rd := from(p)
						return mapRefs(p.Source.(models.Aspect).Assistants, rd.assistant), nil
					},
				},
			}
		}),
	})

	t.item = graphql.NewObject(graphql.ObjectConfig{
		Name:   "Item",
		Fields: graphql.FieldsThunk(func() graphql.Fields { return t.itemFields() }),
	})

	t.skill = graphql.NewObject(graphql.ObjectConfig{
		Name: "Skill",
		Fields: graphql.Fields{
			"id":    sourceField(graphql.NewNonNull(graphql.String), func(s models.Skill) any { return s.ID }),
			"name":  sourceField(graphql.String, func(s models.Skill) any { return s.Name }),
			"level": sourceField(graphql.Int, func(s models.Skill) any { return s.Level }),
			"primary_principle": sourceField(t.principle, func(s models.Skill) any {
				return s.Primary
			}),
			"secondary_principle": sourceField(t.principle, func(s models.Skill) any {
				return s.Secondary
			}),
			"wisdoms": sourceField(graphql.NewList(t.wisdom), func(s models.Skill) any {
				out := make([]models.Wisdom, len(s.Wisdoms))
				for i, w := range s.Wisdoms {
					out[i] = models.Wisdom{ID: w.ID}
				}
				return out
			}),
		},
	})

	t.assistant = graphql.NewObject(graphql.ObjectConfig{
		Name: "Assistant",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":     sourceField(graphql.NewNonNull(graphql.String), func(a models.Assistant) any { return a.ID }),
				"season": sourceField(graphql.String, func(a models.Assistant) any { return a.Season }),
				"base_principles": sourceField(graphql.NewList(t.principleCount), func(a models.Assistant) any {
					return a.BasePrinciples
				}),
				"aspects": &graphql.Field{
					Type: graphql.NewList(t.aspect),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return mapRefs(p.Source.(models.Assistant).AcceptedAspects(), from(p).aspect), nil
					},
				},
				"special_aspects": &graphql.Field{
					Type: graphql.NewList(t.aspect),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return mapRefs(p.Source.(models.Assistant).SpecialAspects, from(p).aspect), nil
					},
				},
			}
		}),
	})

	t.slot = graphql.NewObject(graphql.ObjectConfig{
		Name: "WorkstationSlot",
		Fields: graphql.Fields{
			"id":    sourceField(graphql.NewNonNull(graphql.String), func(s models.Slot) any { return s.ID }),
			"name":  sourceField(graphql.String, func(s models.Slot) any { return s.Name }),
			"index": sourceField(graphql.Int, func(s models.Slot) any { return s.Index }),
			"accepts": &graphql.Field{
				Type: graphql.NewList(t.aspect),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return mapRefs(p.Source.(models.Slot).Accepts, from(p).aspect), nil
				},
			},
		},
	})

	t.workstation = graphql.NewObject(graphql.ObjectConfig{
		Name: "Workstation",
		Fields: graphql.Fields{
			"id": sourceField(graphql.NewNonNull(graphql.String), func(w models.Workstation) any { return w.ID }),
			"principles": sourceField(graphql.NewList(t.principle), func(w models.Workstation) any {
				return w.Principles
			}),
			"workstation_type": sourceField(t.workstationType, func(w models.Workstation) any {
				return models.WorkstationType{ID: w.Type.ID}
			}),
			"workstation_slots": sourceField(graphql.NewList(t.slot), func(w models.Workstation) any {
				return w.Slots
			}),
			"evolves": sourceField(t.ref, func(w models.Workstation) any {
				if w.Evolves == nil {
					return nil
				}
				return *w.Evolves
			}),
		},
	})

	t.recipe = graphql.NewObject(graphql.ObjectConfig{
		Name: "Recipe",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":               sourceField(graphql.NewNonNull(graphql.String), func(r models.Recipe) any { return r.ID }),
				"principle":        sourceField(t.principleName, func(r models.Recipe) any { return string(r.Principle) }),
				"principle_amount": sourceField(graphql.Int, func(r models.Recipe) any { return r.PrincipleAmount }),
				"crafting_action":  sourceField(graphql.String, func(r models.Recipe) any { return r.CraftingAction }),
				"source_aspect": &graphql.Field{
					Type: t.aspect,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						r := p.Source.(models.Recipe)
						if r.SourceAspect == nil {
							return nil, nil
						}
						return from(p).aspect(r.SourceAspect.ID), nil
					},
				},
				"source_item": &graphql.Field{
					Type: t.item,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						r := p.Source.(models.Recipe)
						if r.SourceItem == nil {
							return nil, nil
						}
						return from(p).item(*r.SourceItem), nil
					},
				},
				"product": &graphql.Field{
					Type: t.item,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return from(p).item(p.Source.(models.Recipe).Product), nil
					},
				},
				"skills": &graphql.Field{
					Type: graphql.NewList(t.skill),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return mapRefs(p.Source.(models.Recipe).Skills, from(p).skill), nil
					},
				},
			}
		}),
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: t.query()})
}

func (t *types) itemFields() graphql.Fields {
	fields := graphql.Fields{
		"id":           sourceField(graphql.NewNonNull(graphql.String), func(it models.Item) any { return it.ID }),
		"name":         sourceField(graphql.String, func(it models.Item) any { return it.Name }),
		"known":        sourceField(graphql.Boolean, func(it models.Item) any { return it.Known }),
		"is_craftable": sourceField(graphql.Boolean, func(it models.Item) any { return it.IsCraftable }),
		"aspects": &graphql.Field{
			Type: graphql.NewList(t.aspect),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return mapRefs(p.Source.(models.Item).Aspects, from(p).aspect), nil
			},
		},
		"source_recipe": &graphql.Field{
			Type: graphql.NewList(t.recipe),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return from(p).view.Catalog.ProductRecipes(p.Source.(models.Item).ID), nil
			},
		},
	}
	for _, pr := range models.AllPrinciples {
		fields[string(pr)] = sourceField(graphql.Int, func(it models.Item) any {
			if v, ok := it.Value(pr); ok {
				return v
			}
			return nil
		})
	}
	return fields
}

func (t *types) query() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"item": &graphql.Field{
				Type: graphql.NewList(t.item),
				Args: graphql.FieldConfigArgument{
					"id":         &graphql.ArgumentConfig{Type: graphql.String},
					"known":      &graphql.ArgumentConfig{Type: graphql.Boolean},
					"principles": &graphql.ArgumentConfig{Type: graphql.NewList(t.principleName)},
					"aspects":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items := byID(p, from(p).view.Items, func(it models.Item) string { return it.ID })
					spec := filter.Spec{Known: boolArg(p, "known"), Aspects: stringsArg(p, "aspects")}
					for _, s := range stringsArg(p, "principles") {
						spec.Principles = append(spec.Principles, models.Principle(s))
					}
					if spec.Empty() {
						return items, nil
					}
					return filter.Items(items, spec), nil
				},
			},
			"aspect": listField(t.aspect, func(rd *request) []models.Aspect { return rd.view.Catalog.Aspects },
				func(a models.Aspect) string { return a.ID }),
			"principle": listField(t.principle, func(rd *request) []models.PrincipleRef { return rd.view.Catalog.Principles },
				func(pr models.PrincipleRef) string { return string(pr.ID) }),
			"skill": listField(t.skill, func(rd *request) []models.Skill { return rd.view.Skills },
				func(s models.Skill) string { return s.ID }),
			"assistant": listField(t.assistant, func(rd *request) []models.Assistant { return rd.view.Catalog.Assistants },
				func(a models.Assistant) string { return a.ID }),
			"workstation": listField(t.workstation, func(rd *request) []models.Workstation { return rd.view.Catalog.Workstations },
				func(w models.Workstation) string { return w.ID }),
			"workstation_type": listField(t.workstationType, func(rd *request) []models.WorkstationType { return rd.view.Catalog.WorkstationTypes },
				func(w models.WorkstationType) string { return w.ID }),
			"wisdom": listField(t.wisdom, func(rd *request) []models.Wisdom { return rd.view.Catalog.Wisdoms },
				func(w models.Wisdom) string { return w.ID }),
			"recipe": &graphql.Field{
				Type: graphql.NewList(t.recipe),
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.String},
					"known": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					rd := from(p)
					recipes := rd.view.Catalog.Recipes
					if boolArg(p, "known") {
						recipes = rd.view.Recipes
					}
					return byID(p, recipes, func(r models.Recipe) string { return r.ID }), nil
				},
			},
		},
	})
}

func idObject(name string, id func(any) string) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return id(p.Source), nil
				},
			},
		},
	})
}

func sourceField[T any](typ graphql.Output, get func(T) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			src, ok := p.Source.(T)
			if !ok {
				return nil, fmt.Errorf("graph: unexpected source %T", p.Source)
			}
			return get(src), nil
		},
	}
}

func listField[T any](typ graphql.Output, list func(*request) []T, id func(T) string) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewList(typ),
		Args: idArgs,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return byID(p, list(from(p)), id), nil
		},
	}
}

func byID[T any](p graphql.ResolveParams, vs []T, id func(T) string) []T {
	want, ok := p.Args["id"].(string)
	if !ok {
		return vs
	}
	var out []T
	for _, v := range vs {
		if id(v) == want {
			out = append(out, v)
		}
	}
	return out
}

func mapRefs[R, T any](refs []R, resolve func(string) T) []T {
	out := make([]T, 0, len(refs))
	for _, r := range refs {
		out = append(out, resolve(refID(r)))
	}
	return out
}

func refID(r any) string {
	switch v := r.(type) {
	case models.Ref:
		return v.ID
	case models.ItemRef:
		return v.ID
	}
	return ""
}

func boolArg(p graphql.ResolveParams, name string) bool {
	b, _ := p.Args[name].(bool)
	return b
}

func stringsArg(p graphql.ResolveParams, name string) []string {
	raw, _ := p.Args[name].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
