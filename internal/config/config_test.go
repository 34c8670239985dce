package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "limits:\n  scope: svc\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q, want default :8080", cfg.Server.Addr)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.Observability.LogLevel)
	}
	if cfg.Store.Type != "memory" {
		t.Fatalf("store type = %q, want memory", cfg.Store.Type)
	}
	if cfg.Limits.Default.MaxAttempts != 60 || cfg.Limits.Default.WindowSeconds != 60 {
		t.Fatalf("default window = %+v, want 60/60", cfg.Limits.Default)
	}
	if cfg.Limits.AbuseThreshold != 0.8 {
		t.Fatalf("abuse threshold = %v, want 0.8", cfg.Limits.AbuseThreshold)
	}
	if cfg.Server.ReadTimeout() != 5*time.Second {
		t.Fatalf("read timeout = %s, want 5s", cfg.Server.ReadTimeout())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_EnvOverridesAddr(t *testing.T) {
	t.Setenv("LIMITGATE_ADDR", ":9090")
	path := writeConfig(t, "server:\n  addr: \":8080\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q, want env override :9090", cfg.Server.Addr)
	}
}

func TestEngineConfig(t *testing.T) {
	path := writeConfig(t, `
limits:
  scope: svc
  adaptive: true
  methods:
    "users.export":
      max_attempts: 5
      window_seconds: 300
  resources:
    read: { max_attempts: 100, window_seconds: 60 }
  tiers:
    admin: { max_attempts: 1000, window_seconds: 60 }
    premium: { max_attempts: 200, window_seconds: 60, adaptive: true }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	ec := cfg.Limits.EngineConfig()
	if ec.Scope != "svc" {
		t.Fatalf("scope = %q", ec.Scope)
	}
	if !ec.Adaptive {
		t.Fatal("adaptive flag lost in conversion")
	}
	if got := ec.MethodLimits["users.export"]; got != (ratelimit.Window{MaxAttempts: 5, Window: 5 * time.Minute}) {
		t.Fatalf("method override = %+v", got)
	}
	if got := ec.ResourceLimits["read"]; got != (ratelimit.Window{MaxAttempts: 100, Window: time.Minute}) {
		t.Fatalf("resource window = %+v", got)
	}
	tier := ec.Tiers["premium"]
	if tier.Window.MaxAttempts != 200 || !tier.Adaptive {
		t.Fatalf("premium tier = %+v", tier)
	}
	if _, ok := ec.Tiers["anonymous"]; ok {
		t.Fatal("tiers not in the file must stay unset so the engine defaults apply")
	}
}
