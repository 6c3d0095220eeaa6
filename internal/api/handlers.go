package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"

	"github.com/starford/hours/internal/graph"
	"github.com/starford/hours/internal/metrics"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/progress"
)

// Progress is the progress store the handlers read and update.
type Progress interface {
	View(ctx context.Context) (*progress.View, error)
	UserData(ctx context.Context) (models.UserData, error)
	SetSkillLevel(ctx context.Context, id string, level int) (models.Skill, error)
}

// Executor runs graph queries.
type Executor interface {
	Execute(ctx context.Context, req graph.Request) *graphql.Result
}

// Publisher is notified after a skill level changes.
type Publisher interface {
	PublishSkill(id string, level int)
}

// Handler holds API route handlers.
type Handler struct {
	progress  Progress
	graph     Executor
	events    Publisher
	validator *Validator
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(p Progress, g Executor, events Publisher) *Handler {
	return &Handler{progress: p, graph: g, events: events, validator: NewValidator()}
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Hello World"})
}

// UserData handles GET /user_data.
//
//	@Summary		Get the player's progress
//	@Tags			progress
//	@Produce		json
//	@Success		200	{object}	UserDataResponse
//	@Router			/user_data [get]
func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	ud, err := h.progress.UserData(r.Context())
	if err != nil {
		writeError(w, "user data", err)
		return
	}
	writeJSON(w, http.StatusOK, ud)
}

// SetSkillLevel handles PATCH /skill/{id}.
//
//	@Summary		Set a skill's level
//	@Tags			progress
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Skill id"
//	@Param			body	body		SkillLevelRequest	true	"New level"
//	@Success		200		{object}	models.Skill
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/skill/{id} [patch]
func (h *Handler) SetSkillLevel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req SkillLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:  "validation failed",
			Fields: FormatValidationError(err),
		})
		return
	}

	skill, err := h.progress.SetSkillLevel(r.Context(), id, *req.Level)
	if err != nil {
		writeError(w, "set skill level", err, slog.String("skill", id))
		return
	}
	metrics.SkillUpdates.Inc()
	if h.events != nil {
		h.events.PublishSkill(skill.ID, skill.Level)
	}
	writeJSON(w, http.StatusOK, skill)
}

// GraphQL handles GET and POST /graphql. GET reads query, variables and
// operationName from the query string.
//
//	@Summary		Run a GraphQL query
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GraphQLRequest	false	"Query"
//	@Success		200		{object}	graphql.Result
//	@Router			/graphql [post]
func (h *Handler) GraphQL(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody("invalid variables"))
				return
			}
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}

	res := h.graph.Execute(r.Context(), req)
	if res.HasErrors() {
		metrics.GraphQueries.WithLabelValues("error").Inc()
		slog.Debug("graph query returned errors",
			slog.String("operation", req.OperationName),
			slog.Any("errors", res.Errors))
	} else {
		metrics.GraphQueries.WithLabelValues("ok").Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTable handles GET /{table}. Items and skills carry the player's
// progress.
//
//	@Summary		List every entity of a catalog table
//	@Tags			catalog
//	@Produce		json
//	@Param			table	path	string	true	"Table name"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Router			/{table} [get]
func (h *Handler) ListTable(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseKind(chi.URLParam(r, "table"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown table"))
		return
	}
	view, err := h.progress.View(r.Context())
	if err != nil {
		writeError(w, "list table", err, slog.String("table", string(kind)))
		return
	}

	var out any
	switch kind {
	case models.KindItem:
		out = view.Items
	case models.KindSkill:
		out = view.Skills
	default:
		out, _ = view.Catalog.Entities(kind)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEntity handles GET /{table}/{id}.
//
//	@Summary		Get one catalog entity
//	@Tags			catalog
//	@Produce		json
//	@Param			table	path	string	true	"Table name"
//	@Param			id		path	string	true	"Entity id"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Router			/{table}/{id} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseKind(chi.URLParam(r, "table"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown table"))
		return
	}
	id := chi.URLParam(r, "id")
	view, err := h.progress.View(r.Context())
	if err != nil {
		writeError(w, "get entity", err, slog.String("table", string(kind)), slog.String("id", id))
		return
	}

	var (
		out   any
		found bool
	)
	switch kind {
	case models.KindItem:
		out, found = findByID(view.Items, id, func(v models.Item) string { return v.ID })
	case models.KindSkill:
		out, found = findByID(view.Skills, id, func(v models.Skill) string { return v.ID })
	default:
		out, found = view.Catalog.Entity(kind, id)
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func findByID[T any](vs []T, id string, key func(T) string) (any, bool) {
	i := slices.IndexFunc(vs, func(v T) bool { return key(v) == id })
	if i < 0 {
		return nil, false
	}
	return vs[i], true
}
