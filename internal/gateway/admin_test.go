package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/telega-server/internal/config"
	"github.com/flemzord/telega-server/internal/security"
	"gopkg.in/yaml.v3"
)

func TestAdmin_GetAllModules(t *testing.T) {
	t.Parallel()

	g := &Gateway{}

	req := httptest.NewRequest(http.MethodGet, "/api/modules", nil)
	rr := httptest.NewRecorder()
	g.handleGetAllModules().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var mods []moduleJSON
	if err := json.NewDecoder(rr.Body).Decode(&mods); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// This package registers gateway.http from init().
	var found bool
	for _, m := range mods {
		if m.ID == "gateway.http" {
			found = true
			if m.Namespace != "gateway" || m.Name != "http" {
				t.Errorf("module = %+v, want gateway/http", m)
			}
		}
	}
	if !found {
		t.Errorf("gateway.http missing from %+v", mods)
	}
}

func TestAdmin_GetConfig_Redacted(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	err := yaml.Unmarshal([]byte(`
version: "1"
log_level: debug
modules:
  bridge.stdio:
    tdlib_verbosity: 2
  gateway.http:
    bind: 127.0.0.1:9464
    auth:
      bearer_token: hunter2
      basic_user: admin
`), &cfg)
	if err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}

	g := &Gateway{loaded: &cfg, redactor: security.NewRedactor()}
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rr := httptest.NewRecorder()
	g.handleGetConfig().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Version  string                    `json:"version"`
		LogLevel string                    `json:"log_level"`
		Modules  map[string]map[string]any `json:"modules"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Version != "1" || resp.LogLevel != "debug" {
		t.Errorf("header = %q/%q", resp.Version, resp.LogLevel)
	}
	if v := resp.Modules["bridge.stdio"]["tdlib_verbosity"]; v != float64(2) {
		t.Errorf("tdlib_verbosity = %v, want 2", v)
	}
	auth, _ := resp.Modules["gateway.http"]["auth"].(map[string]any)
	if auth["bearer_token"] != "***REDACTED***" {
		t.Errorf("bearer_token = %v, want redacted", auth["bearer_token"])
	}
	if auth["basic_user"] != "admin" {
		t.Errorf("basic_user = %v, want admin", auth["basic_user"])
	}
}

func TestAdmin_GetConfig_NotLoaded(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rr := httptest.NewRecorder()
	g.handleGetConfig().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
