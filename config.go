package pubforms

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/eringen/pubforms/drafts"
)

// SiteConfig holds all configuration for a pubforms site.
type SiteConfig struct {
	Name string `toml:"name"` // Site name (default "Pubforms")
	Addr string `toml:"addr"` // Listen address (default ":3000")

	APIBaseURL       string        `toml:"api_base_url"`       // Backend base URL (default "http://localhost:8000")
	APITimeout       time.Duration `toml:"api_timeout"`        // Backend request timeout, 0 = request context only
	CategoryCacheTTL time.Duration `toml:"category_cache_ttl"` // 0 = fetch categories on every page load

	DraftsDatabasePath string        `toml:"drafts_database_path"` // SQLite path (default "data/drafts.db")
	DraftMaxAge        time.Duration `toml:"draft_max_age"`        // Drafts untouched this long are purged (default 24h)

	SessionSecret string `toml:"-"`             // Required: session encryption secret, from SESSION_SECRET
	CookieSecure  bool   `toml:"cookie_secure"` // Set true for HTTPS

	SubmitLimit       int           `toml:"submit_limit"`        // Sign-up/sign-in submits per IP per window (default 10)
	SubmitLimitWindow time.Duration `toml:"submit_limit_window"` // default 1min

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	Environment string `toml:"-"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Pubforms"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://localhost:8000"
	}
	if c.DraftsDatabasePath == "" {
		c.DraftsDatabasePath = "data/drafts.db"
	}
	if c.DraftMaxAge == 0 {
		c.DraftMaxAge = 24 * time.Hour
	}
	if c.SubmitLimit == 0 {
		c.SubmitLimit = 10
	}
	if c.SubmitLimitWindow == 0 {
		c.SubmitLimitWindow = time.Minute
	}
}

// Toml is the layout of the config file: one table per environment.
type Toml struct {
	Development *SiteConfig
	Production  *SiteConfig
}

func (t *Toml) Get(env string) (*SiteConfig, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// LoadConfig reads the section for env from the TOML file at path and applies
// environment overrides (API_BASE_URL, SESSION_SECRET).
func LoadConfig(env, path string) (SiteConfig, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return SiteConfig{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg, err := t.Get(env)
	if err != nil {
		return SiteConfig{}, err
	}
	if cfg == nil {
		return SiteConfig{}, fmt.Errorf("config %s has no [%s] section", path, env)
	}

	out := *cfg
	out.Environment = strings.ToLower(env)
	out.APIBaseURL = EnvOr("API_BASE_URL", out.APIBaseURL)
	out.SessionSecret = os.Getenv("SESSION_SECRET")
	return out, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithBackend replaces the HTTP backend client, e.g. with a fake in tests.
func WithBackend(b Backend) Option {
	return func(a *App) {
		a.Backend = b
	}
}

// WithDrafts uses an already opened drafts store.
func WithDrafts(s *drafts.Store) Option {
	return func(a *App) {
		a.Drafts = s
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
