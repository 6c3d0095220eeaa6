package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/hours/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8000" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestAutosaveConfig_WatchNeedsPath(t *testing.T) {
	cfg := AutosaveConfig{Watch: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("watch without path should fail")
	}
	cfg.Path = "/saves/AUTOSAVE.json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("watch with path: %v", err)
	}
	if err := (&AutosaveConfig{}).Validate(); err != nil {
		t.Errorf("disabled autosave: %v", err)
	}
}

func TestClientConfig_Validation(t *testing.T) {
	cfg := NewDefaultConfig().Client
	cfg.CacheTTL = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative cache ttl should fail")
	}
	cfg = NewDefaultConfig().Client
	cfg.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty base url should fail")
	}
}

func TestAuthConfig_BearerToken(t *testing.T) {
	cfg := AuthConfig{Mode: AuthModeDisabled, Token: "ignored"}
	if cfg.BearerToken() != "" {
		t.Error("disabled mode should enforce no token")
	}
	cfg.Mode = AuthModeToken
	if cfg.BearerToken() != "ignored" {
		t.Error("token mode should enforce the token")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("HOURS_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `app:
  log_level: debug
  http:
    port: 9100
data:
  path: /srv/hours/data
autosave:
  path: /saves/AUTOSAVE.json
  watch: true
auth:
  mode: token
  token: ${HOURS_TEST_TOKEN}
client:
  cache_ttl: 30s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9100 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Data.Path != "/srv/hours/data" || cfg.Data.Assets != "./assets" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Auth.BearerToken() != "s3cret" {
		t.Errorf("token = %q", cfg.Auth.BearerToken())
	}
	if cfg.Client.CacheTTL != 30*time.Second || cfg.Client.CacheSize != 128 {
		t.Errorf("client = %+v", cfg.Client)
	}
	if !cfg.App.CORS {
		t.Error("cors default lost")
	}
}
