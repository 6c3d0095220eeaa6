// Package graph serves the catalog as a GraphQL schema, with the player's
// progress overlaid on items and skills.
package graph

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/progress"
)

// ViewSource provides the overlaid catalog for one request.
type ViewSource interface {
	View(ctx context.Context) (*progress.View, error)
}

// Server executes queries against the catalog schema.
type Server struct {
	schema graphql.Schema
	source ViewSource
}

// NewServer builds the schema.
func NewServer(source ViewSource) (*Server, error) {
	schema, err := newSchema()
	if err != nil {
		return nil, fmt.Errorf("graph: build schema: %w", err)
	}
	return &Server{schema: schema, source: source}, nil
}

// Request is a GraphQL request body.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Execute runs req. Errors loading the catalog view are reported in the
// result, the way GraphQL reports resolver errors.
func (s *Server) Execute(ctx context.Context, req Request) *graphql.Result {
	view, err := s.source.View(ctx)
	if err != nil {
		return &graphql.Result{Errors: gqlerrors.FormatErrors(err)}
	}
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        context.WithValue(ctx, requestKey{}, newRequest(view)),
	})
}

// Introspect returns the schema introspection result.
func (s *Server) Introspect(ctx context.Context) *graphql.Result {
	return graphql.Do(graphql.Params{Schema: s.schema, RequestString: IntrospectionQuery, Context: ctx})
}

type requestKey struct{}

// request carries the view and lookup tables shared by every resolver of
// one query.
type request struct {
	view   *progress.View
	items  map[string]models.Item
	skills map[string]models.Skill
}

func newRequest(v *progress.View) *request {
	rd := &request{
		view:   v,
		items:  make(map[string]models.Item, len(v.Items)),
		skills: make(map[string]models.Skill, len(v.Skills)),
	}
	for _, it := range v.Items {
		rd.items[it.ID] = it
	}
	for _, s := range v.Skills {
		rd.skills[s.ID] = s
	}
	return rd
}

func from(p graphql.ResolveParams) *request {
	return p.Context.Value(requestKey{}).(*request)
}

func (rd *request) aspect(id string) models.Aspect {
	if a, ok := rd.view.Catalog.Aspect(id); ok {
		return a
	}
	return models.Aspect{ID: id, Assistants: []models.Ref{}}
}

func (rd *request) assistant(id string) models.Assistant {
	if a, ok := rd.view.Catalog.Assistant(id); ok {
		return a
	}
	return models.Assistant{ID: id}
}

func (rd *request) skill(id string) models.Skill {
	if s, ok := rd.skills[id]; ok {
		return s
	}
	return models.Skill{ID: id}
}

func (rd *request) item(ref models.ItemRef) models.Item {
	if it, ok := rd.items[ref.ID]; ok {
		return it
	}
	name := ref.Name
	if name == "" {
		name = ref.ID
	}
	return models.Item{ID: ref.ID, Name: name}
}
