package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Deps collects what the router serves.
type Deps struct {
	Progress Progress
	Graph    Executor
	// Events is notified of skill updates. Optional.
	Events Publisher
	// SSE, if non-nil, is mounted at GET /events.
	SSE http.Handler
	// AuthToken enables Bearer auth on mutating routes when non-empty.
	AuthToken string
	// AssetsDir holds the icon directories served under /data.
	AssetsDir string
	// CORS allows any origin.
	CORS bool
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Progress, d.Graph, d.Events)
	ah := NewAssetHandler(d.AssetsDir)

	r := chi.NewRouter()
	if d.CORS {
		r.Use(CORSMiddleware)
	}

	r.Get("/", h.Root)

	// Progress.
	r.Get("/user_data", h.UserData)
	r.With(AuthMiddleware(d.AuthToken != "", d.AuthToken)).Patch("/skill/{id}", h.SetSkillLevel)

	// Graph.
	r.Get("/graphql", h.GraphQL)
	r.Post("/graphql", h.GraphQL)

	// Icons.
	r.Get("/data/{kind}/{file}", ah.ServeIcon)

	if d.SSE != nil {
		r.Get("/events", d.SSE.ServeHTTP)
	}

	// Catalog tables.
	r.Get("/{table}", h.ListTable)
	r.Get("/{table}/{id}", h.GetEntity)

	return r
}
