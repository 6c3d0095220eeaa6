package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/hours/internal/models"
)

// fakeService answers the handful of routes the client uses.
type fakeService struct {
	graphCalls   atomic.Int32
	userDataFail bool
	patchFail    bool
	levels       map[string]int
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/graphql":
		f.graphCalls.Add(1)
		var req struct {
			OperationName string `json:"operationName"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.OperationName {
		case "Items":
			_, _ = io.WriteString(w, `{"data":{"item":[
				{"id":"candle","name":"Candle","known":false,"lantern":2,"edge":null,"aspects":[{"id":"tool"}]},
				{"id":"lamp","name":"Brass Lamp","known":false,"lantern":5,"aspects":[{"id":"tool"}]}]}}`)
		case "Skills":
			_, _ = io.WriteString(w, `{"data":{"skill":[
				{"id":"s.a","level":0,"primary_principle":{"id":"edge"},"secondary_principle":{"id":"forge"}},
				{"id":"s.b","level":0,"primary_principle":{"id":"moon"},"secondary_principle":{"id":"moth"}}]}}`)
		case "Recipes":
			_, _ = io.WriteString(w, `{"data":{"recipe":[
				{"id":"r.b","principle":"lantern","principle_amount":5,"product":{"id":"lamp"},"skills":[{"id":"s.a"},{"id":"s.b"}]},
				{"id":"r.a","principle":"edge","principle_amount":2,"product":{"id":"candle"},"skills":[{"id":"s.a"}]}]}}`)
		case "Workstation":
			_, _ = io.WriteString(w, `{"data":{"workstation":[{"id":"desk","principles":[{"id":"lantern"}],
				"workstation_type":{"id":"library"},"workstation_slots":[{"id":"a","name":"A","index":0,"accepts":[{"id":"tool"}]}]}]}}`)
		default:
			_, _ = io.WriteString(w, `{"data":null,"errors":[{"message":"Cannot query field \"nope\""}]}`)
		}
	case r.Method == http.MethodGet && r.URL.Path == "/user_data":
		if f.userDataFail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"boom"}`)
			return
		}
		_, _ = io.WriteString(w, `{"items":[{"id":"lamp"}],"skills":[{"id":"s.a","level":2}],"recipes":[{"id":"r.b","skills":[{"id":"s.b"}]}]}`)
	case r.Method == http.MethodPatch && r.URL.Path == "/skill/s.a":
		if f.patchFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body struct {
			Level int `json:"level"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.levels["s.a"] = body.Level
		_ = json.NewEncoder(w).Encode(models.Skill{
			ID: "s.a", Level: body.Level,
			Primary:   models.PrincipleRef{ID: models.Edge},
			Secondary: models.PrincipleRef{ID: models.Forge},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}
}

func newTestClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	if f.levels == nil {
		f.levels = map[string]int{}
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))})
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultBaseURL, c.base)
}

func TestQuery_CachesResults(t *testing.T) {
	f := &fakeService{}
	c := newTestClient(t, f)
	ctx := context.Background()

	items, err := c.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	v, ok := items[0].Value(models.Lantern)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = items[0].Value(models.Edge)
	assert.False(t, ok)

	_, err = c.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.graphCalls.Load())

	c.InvalidateCache()
	_, _ = c.Items(ctx)
	assert.Equal(t, int32(2), f.graphCalls.Load())
}

func TestQuery_Errors(t *testing.T) {
	c := newTestClient(t, &fakeService{})

	var dst map[string]any
	err := c.Query(context.Background(), Document{Name: "Broken", Query: "{ nope }"}, nil, &dst)

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "Broken", qe.Operation)
	assert.Contains(t, qe.Error(), "nope")
}

func TestWorkstations(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	ws, err := c.Workstations(context.Background())
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "library", ws[0].Type.ID)
	assert.Equal(t, "A", ws[0].Slots[0].Name)
}

func TestSetSkillLevel_NotFound(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	_, err := c.SetSkillLevel(context.Background(), "s.unknown", 1)
	assert.True(t, IsNotFound(err))
}

func TestSession_Load(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	s := NewSession(c)

	require.NoError(t, s.Load(context.Background()))

	items := s.Items()
	assert.False(t, items[0].Known)
	assert.True(t, items[1].Known)
	assert.Equal(t, 2, s.Skills()[0].Level)

	recipes := s.KnownRecipes()
	require.Len(t, recipes, 1)
	assert.Equal(t, "r.b", recipes[0].ID)
	assert.Equal(t, models.Refs("s.b"), recipes[0].Skills)
}

func TestSession_LoadWithoutUserData(t *testing.T) {
	c := newTestClient(t, &fakeService{userDataFail: true})
	s := NewSession(c)

	require.NoError(t, s.Load(context.Background()))

	for _, it := range s.Items() {
		assert.False(t, it.Known)
	}
	assert.Empty(t, s.KnownRecipes())
	assert.NotNil(t, s.UserData().Items)
}

func TestSession_IncrementSkill(t *testing.T) {
	f := &fakeService{}
	c := newTestClient(t, f)
	s := NewSession(c)
	require.NoError(t, s.Load(context.Background()))

	updated, err := s.IncrementSkill(context.Background(), "s.a")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Level)
	assert.Equal(t, 3, f.levels["s.a"])
	assert.Equal(t, 3, s.Skills()[0].Level)
}

func TestSession_IncrementSkillFailureLeavesState(t *testing.T) {
	f := &fakeService{patchFail: true}
	c := newTestClient(t, f)
	s := NewSession(c)
	require.NoError(t, s.Load(context.Background()))

	_, err := s.IncrementSkill(context.Background(), "s.a")
	require.Error(t, err)
	assert.Equal(t, 2, s.Skills()[0].Level)
}
