package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/hours/internal/graph"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/progress"
	"github.com/starford/hours/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	skills []string
}

func (p *recordingPublisher) PublishSkill(id string, level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skills = append(p.skills, id)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.skills...)
}

type testEnv struct {
	svc    *progress.Service
	router http.Handler
	events *recordingPublisher
	assets string
}

// newTestEnv sets up a fixture catalog, the progress store and the router.
// An empty token disables auth.
func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	_, store := testutil.TestData(t)
	svc := progress.NewService(db, testutil.Catalog(t, db, store))
	gs, err := graph.NewServer(svc)
	if err != nil {
		t.Fatalf("graph.NewServer: %v", err)
	}

	env := &testEnv{svc: svc, events: &recordingPublisher{}, assets: t.TempDir()}
	env.router = NewRouter(Deps{
		Progress:  svc,
		Graph:     gs,
		Events:    env.events,
		SSE:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) }),
		AuthToken: token,
		AssetsDir: env.assets,
		CORS:      true,
	})
	return env
}

func (e *testEnv) do(method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func levelBody(level int) []byte {
	b, _ := json.Marshal(map[string]int{"level": level})
	return b
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodGet, "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Hello World") {
		t.Errorf("GET / = %d %s", w.Code, w.Body.String())
	}
}

func TestUserData_Empty(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodGet, "/user_data", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	for _, key := range []string{"items", "skills", "recipes"} {
		if string(body[key]) != "[]" {
			t.Errorf("%s = %s, want []", key, body[key])
		}
	}
}

func TestSetSkillLevel(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", levelBody(3))
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	var skill models.Skill
	_ = json.Unmarshal(w.Body.Bytes(), &skill)
	if skill.ID != "s.anbary_and_the_eye" || skill.Level != 3 {
		t.Errorf("echoed skill = %+v", skill)
	}

	ud, err := env.svc.UserData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ud.Skills) != 1 || ud.Skills[0].Level != 3 {
		t.Errorf("stored skills = %+v", ud.Skills)
	}
	if got := env.events.published(); len(got) != 1 || got[0] != "s.anbary_and_the_eye" {
		t.Errorf("published = %v", got)
	}
}

func TestSetSkillLevel_UnknownSkill(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodPatch, "/skill/s.nope", levelBody(1))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if len(env.events.published()) != 0 {
		t.Error("failed update should not publish")
	}
}

func TestSetSkillLevel_Validation(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing level = %d, want 400", w.Code)
	}
	var resp validationResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Fields["level"] != "This field is required" {
		t.Errorf("fields = %v", resp.Fields)
	}

	w = env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", levelBody(-1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative level = %d, want 400", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Fields["level"] != "Must be at least 0" {
		t.Errorf("fields = %v", resp.Fields)
	}

	w = env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", []byte(`not json`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	w := env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", levelBody(1), "Authorization", "Bearer secret")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	w := env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", levelBody(1))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	w := env.do(http.MethodPatch, "/skill/s.anbary_and_the_eye", levelBody(1), "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_ReadsOpen(t *testing.T) {
	env := newTestEnv(t, "secret")
	w := env.do(http.MethodGet, "/user_data", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /user_data with auth enabled = %d, want 200", w.Code)
	}
}

func TestListTable_ItemsCarryProgress(t *testing.T) {
	env := newTestEnv(t, "")
	if err := env.svc.Import(context.Background(), models.UserData{Items: []models.ItemRef{{ID: "lamp"}}}); err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodGet, "/item", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var items []struct {
		ID    string `json:"id"`
		Known bool   `json:"known"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &items)
	if len(items) != 5 {
		t.Fatalf("items = %+v", items)
	}
	for _, it := range items {
		if it.Known != (it.ID == "lamp") {
			t.Errorf("%s known = %v", it.ID, it.Known)
		}
	}
}

func TestListTable_Unknown(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodGet, "/spells", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetEntity(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/workstation/desk", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var ws models.Workstation
	_ = json.Unmarshal(w.Body.Bytes(), &ws)
	if len(ws.Slots) != 2 || ws.Slots[0].ID != "desk.a" || ws.Slots[1].ID != "desk.b" {
		t.Errorf("slots = %+v, want ascending index", ws.Slots)
	}

	if _, err := env.svc.SetSkillLevel(context.Background(), "s.bells_and_brazen_bells", 2); err != nil {
		t.Fatal(err)
	}
	w = env.do(http.MethodGet, "/skill/s.bells_and_brazen_bells", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET skill status = %d", w.Code)
	}
	var skill models.Skill
	_ = json.Unmarshal(w.Body.Bytes(), &skill)
	if skill.Level != 2 {
		t.Errorf("skill level = %d, want 2", skill.Level)
	}

	w = env.do(http.MethodGet, "/item/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing item = %d, want 404", w.Code)
	}
}

func TestGraphQL_Post(t *testing.T) {
	env := newTestEnv(t, "")
	body, _ := json.Marshal(GraphQLRequest{
		Query:     `query Items($id: String) { item(id: $id) { id name } }`,
		Variables: map[string]any{"id": "candle"},
	})
	w := env.do(http.MethodPost, "/graphql", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Data struct {
			Item []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"item"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if len(res.Data.Item) != 1 || res.Data.Item[0].Name != "Candle" {
		t.Errorf("items = %+v", res.Data.Item)
	}
}

func TestGraphQL_Get(t *testing.T) {
	env := newTestEnv(t, "")
	q := url.Values{"query": {`{ wisdom { id } }`}}
	w := env.do(http.MethodGet, "/graphql?"+q.Encode(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"Bosk"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGraphQL_MissingQuery(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodPost, "/graphql", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServeIcon(t *testing.T) {
	env := newTestEnv(t, "")
	dir := filepath.Join(env.assets, "aspect")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tool.png"), []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodGet, "/data/aspect/tool.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "\x89PNG" {
		t.Errorf("body = %q", w.Body.String())
	}

	if w := env.do(http.MethodGet, "/data/aspect/memory.png", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing icon = %d, want 404", w.Code)
	}
	if w := env.do(http.MethodGet, "/data/recipe/tool.png", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d, want 400", w.Code)
	}
	if w := env.do(http.MethodGet, "/data/aspect/tool.txt", nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-png = %d, want 400", w.Code)
	}
	if w := env.do(http.MethodGet, "/data/aspect/..%2F..%2Fsecret.png", nil); w.Code != http.StatusBadRequest {
		t.Errorf("traversal = %d, want 400", w.Code)
	}
}

func TestEventsMounted(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodGet, "/events", nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want the SSE handler", w.Code)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodOptions, "/skill/s.anbary_and_the_eye", nil,
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "PATCH",
		"Access-Control-Request-Headers", "content-type")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("allow headers = %q", got)
	}

	w = env.do(http.MethodGet, "/user_data", nil, "Origin", "http://localhost:5173")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin on GET = %q", got)
	}
}
