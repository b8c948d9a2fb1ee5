package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/telega-server/internal/config"
	"github.com/flemzord/telega-server/internal/core"
	"github.com/flemzord/telega-server/internal/metrics"
	"github.com/flemzord/telega-server/internal/security"
	"gopkg.in/yaml.v3"
)

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ModuleInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}

	mod := info.New()
	if _, ok := mod.(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}

	node := mustYAMLNode(t, "{}")
	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:9464" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:9090"
read_timeout: 5s
write_timeout: 15s
shutdown_timeout: 10s
auth:
  bearer_token: "my-token"
`)

	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q, want custom", g.config.Bind)
	}
	if g.config.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", g.config.ReadTimeout)
	}
	if g.config.Auth.BearerToken != "my-token" {
		t.Errorf("BearerToken = %q", g.config.Auth.BearerToken)
	}
}

func TestGateway_ValidateGoodAddress(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	g.config.Bind = "127.0.0.1:9464"
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGateway_ValidateBadAddress(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	g.config.Bind = "not a valid address::"
	if err := g.Validate(); err == nil {
		t.Error("expected validation error for bad address")
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context and an optional bearer token.
func doGet(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// startGateway provisions and starts a gateway on a free port with the
// given services already registered.
func startGateway(t *testing.T, auth AuthConfig, register func(*core.AppContext)) string {
	t.Helper()

	addr := freeAddr(t)
	appCtx := testAppContext()
	if register != nil {
		register(appCtx)
	}

	g := &Gateway{}
	g.config = Config{
		Bind:            addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}
	if err := g.Provision(appCtx.ForModule("gateway.http")); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
	return addr
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	addr := startGateway(t, AuthConfig{}, nil)

	resp := doGet(t, "http://"+addr+"/health", "")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("health.Status = %q, want %q", health.Status, "ok")
	}
}

func TestGateway_StartWithServices(t *testing.T) {
	t.Parallel()

	reg := metrics.New()
	reg.RecordConversion(metrics.Command, 7, 9, time.Millisecond, nil)
	bridge := newFakeBridge()

	addr := startGateway(t, AuthConfig{}, func(ctx *core.AppContext) {
		ctx.RegisterService(core.ServiceMetrics, reg)
		ctx.RegisterService(core.ServiceBridge, core.Finisher(bridge))
	})

	resp := doGet(t, "http://"+addr+"/health", "")
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_ = resp.Body.Close()
	if health.Bridge != "connected" {
		t.Errorf("bridge = %q, want connected", health.Bridge)
	}

	resp = doGet(t, "http://"+addr+"/metrics", "")
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), `telega_messages_total{direction="command",outcome="ok"} 1`) {
		t.Errorf("metrics output missing command counter:\n%s", body)
	}

	bridge.finish(nil)
	resp = doGet(t, "http://"+addr+"/health", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("health after finish = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestGateway_MetricsWithoutRegistry(t *testing.T) {
	t.Parallel()

	addr := startGateway(t, AuthConfig{}, nil)

	resp := doGet(t, "http://"+addr+"/metrics", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("metrics status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestGateway_AdminNotMountedWithoutAuth(t *testing.T) {
	t.Parallel()

	addr := startGateway(t, AuthConfig{}, nil)

	for _, path := range []string{"/status", "/api/modules", "/api/config"} {
		resp := doGet(t, "http://"+addr+path, "")
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s code = %d, want 404 or 405 (not mounted)", path, resp.StatusCode)
		}
	}
}

func TestGateway_AdminWithAuth(t *testing.T) {
	t.Parallel()

	addr := startGateway(t, AuthConfig{BearerToken: "test-token"}, nil)

	// Without token → 401.
	resp := doGet(t, "http://"+addr+"/status", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no-auth status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// With valid token → 200.
	resp2 := doGet(t, "http://"+addr+"/status", "test-token")
	_ = resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("auth status = %d, want %d", resp2.StatusCode, http.StatusOK)
	}

	// Health stays public.
	resp3 := doGet(t, "http://"+addr+"/health", "")
	_ = resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp3.StatusCode, http.StatusOK)
	}
}

func TestGateway_SharesRedactor(t *testing.T) {
	t.Parallel()

	redactor := security.NewRedactor()
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(`
version: "1"
modules:
  bridge.stdio:
    tdlib_log_file: /var/log/test-token.log
`), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}

	addr := startGateway(t, AuthConfig{BearerToken: "test-token"}, func(ctx *core.AppContext) {
		ctx.RegisterService(core.ServiceRedactor, redactor)
		ctx.RegisterService(core.ServiceConfig, &cfg)
	})

	if got := redactor.Redact("auth test-token"); got != "auth "+security.RedactPlaceholder {
		t.Errorf("shared redactor does not know the bearer token: %q", got)
	}

	resp := doGet(t, "http://"+addr+"/api/config", "test-token")
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if strings.Contains(string(body), "test-token") {
		t.Errorf("config output leaks the token: %s", body)
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
