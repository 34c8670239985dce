package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

type Server struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	IdleTimeoutMS  int    `yaml:"idle_timeout_ms"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
}

type Observability struct {
	LogLevel       string `yaml:"log_level"`       // "debug","info","warn","error"
	PrometheusPath string `yaml:"prometheus_path"` // e.g. "/metrics"
	AuditPath      string `yaml:"audit_path"`      // JSONL audit trail
}

type Store struct {
	Type  string `yaml:"type"` // "memory" or "redis"
	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
		// password comes from REDIS_PASSWORD, never from the file
		Password string `yaml:"-"`
	} `yaml:"redis"`
}

type WindowSpec struct {
	MaxAttempts   int `yaml:"max_attempts"`
	WindowSeconds int `yaml:"window_seconds"`
}

type TierSpec struct {
	MaxAttempts   int  `yaml:"max_attempts"`
	WindowSeconds int  `yaml:"window_seconds"`
	Adaptive      bool `yaml:"adaptive"`
}

type Limits struct {
	Scope               string                `yaml:"scope"`
	Default             WindowSpec            `yaml:"default"`
	Adaptive            bool                  `yaml:"adaptive"`
	AbuseThreshold      float64               `yaml:"abuse_threshold"`
	AbuseBackoffSeconds int                   `yaml:"abuse_backoff_seconds"`
	ScorerHostileRate   int                   `yaml:"scorer_hostile_rate"`
	Methods             map[string]WindowSpec `yaml:"methods"`   // "scope.method"
	Resources           map[string]WindowSpec `yaml:"resources"` // read/write/delete/export/bulk
	Tiers               map[string]TierSpec   `yaml:"tiers"`     // admin/premium/authenticated/anonymous
}

type APIKey struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
	Tier   string `yaml:"tier"`
}

type Auth struct {
	Header string   `yaml:"header"`
	Keys   []APIKey `yaml:"keys"`
}

type Root struct {
	Server        Server        `yaml:"server"`
	Observability Observability `yaml:"observability"`
	Store         Store         `yaml:"store"`
	Auth          Auth          `yaml:"auth"`
	Limits        Limits        `yaml:"limits"`
}

func (s Server) ReadTimeout() time.Duration {
	if s.ReadTimeoutMS == 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

func (s Server) WriteTimeout() time.Duration {
	if s.WriteTimeoutMS == 0 {
		return 10 * time.Second
	}
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (s Server) IdleTimeout() time.Duration {
	if s.IdleTimeoutMS == 0 {
		return 60 * time.Second
	}
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

func (s Server) MaxBody() int64 {
	if s.MaxBodyBytes == 0 {
		return 10 << 20
	}
	return s.MaxBodyBytes
} // default 10MB

func Load(path string) (*Root, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if addr := os.Getenv("LIMITGATE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	}
	if cfg.Observability.AuditPath == "" {
		cfg.Observability.AuditPath = "./audit.log"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Store.Redis.Addr = addr
	}
	cfg.Store.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Auth.Header == "" {
		cfg.Auth.Header = "X-API-Key"
	}
	if cfg.Limits.Scope == "" {
		cfg.Limits.Scope = "api"
	}
	if cfg.Limits.Default.MaxAttempts <= 0 {
		cfg.Limits.Default.MaxAttempts = 60
	}
	if cfg.Limits.Default.WindowSeconds <= 0 {
		cfg.Limits.Default.WindowSeconds = 60
	}
	if cfg.Limits.AbuseThreshold <= 0 {
		cfg.Limits.AbuseThreshold = 0.8
	}
	if cfg.Limits.AbuseBackoffSeconds <= 0 {
		cfg.Limits.AbuseBackoffSeconds = 300
	}
	if cfg.Limits.ScorerHostileRate <= 0 {
		cfg.Limits.ScorerHostileRate = 300
	}

	return &cfg, nil
}

func (w WindowSpec) window() ratelimit.Window {
	return ratelimit.Window{
		MaxAttempts: w.MaxAttempts,
		Window:      time.Duration(w.WindowSeconds) * time.Second,
	}
}

// EngineConfig converts the YAML policy tables into the engine's
// configuration. Tables left out of the file stay nil so the engine
// applies its own defaults.
func (l Limits) EngineConfig() ratelimit.Config {
	cfg := ratelimit.Config{
		Scope:          l.Scope,
		MaxAttempts:    l.Default.MaxAttempts,
		Window:         time.Duration(l.Default.WindowSeconds) * time.Second,
		Adaptive:       l.Adaptive,
		AbuseThreshold: l.AbuseThreshold,
		AbuseBackoff:   time.Duration(l.AbuseBackoffSeconds) * time.Second,
	}
	if len(l.Methods) > 0 {
		cfg.MethodLimits = make(map[string]ratelimit.Window, len(l.Methods))
		for k, v := range l.Methods {
			cfg.MethodLimits[k] = v.window()
		}
	}
	if len(l.Resources) > 0 {
		cfg.ResourceLimits = make(map[string]ratelimit.Window, len(l.Resources))
		for k, v := range l.Resources {
			cfg.ResourceLimits[k] = v.window()
		}
	}
	if len(l.Tiers) > 0 {
		cfg.Tiers = make(map[string]ratelimit.TierLimit, len(l.Tiers))
		for k, v := range l.Tiers {
			cfg.Tiers[k] = ratelimit.TierLimit{
				Window: ratelimit.Window{
					MaxAttempts: v.MaxAttempts,
					Window:      time.Duration(v.WindowSeconds) * time.Second,
				},
				Adaptive: v.Adaptive,
			}
		}
	}
	return cfg
}
