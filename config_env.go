package authflow

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// configEnv holds AUTHFLOW_* values. It is seeded from DefaultConfig so
// unset variables keep their default.
type configEnv struct {
	AdminPath           string `env:"AUTHFLOW_ROUTE_ADMIN"`
	HomePath            string `env:"AUTHFLOW_ROUTE_HOME"`
	CompleteProfilePath string `env:"AUTHFLOW_ROUTE_COMPLETE_PROFILE"`

	AdminRole        string        `env:"AUTHFLOW_ADMIN_ROLE"`
	EnableThrottle   bool          `env:"AUTHFLOW_LOGIN_THROTTLE"`
	EnableIPThrottle bool          `env:"AUTHFLOW_LOGIN_IP_THROTTLE"`
	MaxAttempts      int           `env:"AUTHFLOW_LOGIN_MAX_ATTEMPTS"`
	Window           time.Duration `env:"AUTHFLOW_LOGIN_WINDOW"`

	MinimumAge int           `env:"AUTHFLOW_SIGNUP_MIN_AGE"`
	DraftTTL   time.Duration `env:"AUTHFLOW_SIGNUP_DRAFT_TTL"`
	DraftKey   string        `env:"AUTHFLOW_SIGNUP_DRAFT_KEY"`

	GoogleClientID   string        `env:"AUTHFLOW_GOOGLE_CLIENT_ID"`
	FacebookAppID    string        `env:"AUTHFLOW_FACEBOOK_APP_ID"`
	PollInterval     time.Duration `env:"AUTHFLOW_SOCIAL_POLL_INTERVAL"`
	SDKLoadTimeout   time.Duration `env:"AUTHFLOW_SOCIAL_SDK_TIMEOUT"`
	AuthorizeTimeout time.Duration `env:"AUTHFLOW_SOCIAL_AUTHORIZE_TIMEOUT"`
	DiscardLate      bool          `env:"AUTHFLOW_SOCIAL_DISCARD_LATE"`

	RedisPrefix string        `env:"AUTHFLOW_REDIS_PREFIX"`
	SessionTTL  time.Duration `env:"AUTHFLOW_SESSION_TTL"`

	AuditEnabled   bool `env:"AUTHFLOW_AUDIT"`
	AuditShards    int  `env:"AUTHFLOW_AUDIT_SHARDS"`
	MetricsEnabled bool `env:"AUTHFLOW_METRICS"`
	LatencyEnabled bool `env:"AUTHFLOW_METRICS_LATENCY"`
}

// LoadConfigFromEnv returns DefaultConfig overlaid with AUTHFLOW_* variables
// and validates the result.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Parse)
}

// LoadConfigFromMap is LoadConfigFromEnv reading from vars instead of the
// process environment.
func LoadConfigFromMap(vars map[string]string) (Config, error) {
	return loadConfig(func(v any) error {
		return env.ParseWithOptions(v, env.Options{Environment: vars})
	})
}

func loadConfig(parse func(any) error) (Config, error) {
	cfg := defaultConfig()

	raw := configEnv{
		AdminPath:           cfg.Routes.AdminDashboard,
		HomePath:            cfg.Routes.Home,
		CompleteProfilePath: cfg.Routes.CompleteProfile,
		AdminRole:           cfg.Login.AdminRole,
		EnableThrottle:      cfg.Login.EnableThrottle,
		EnableIPThrottle:    cfg.Login.EnableIPThrottle,
		MaxAttempts:         cfg.Login.MaxAttempts,
		Window:              cfg.Login.Window,
		MinimumAge:          cfg.Signup.MinimumAge,
		DraftTTL:            cfg.Signup.DraftTTL,
		DraftKey:            cfg.Signup.DraftKey,
		GoogleClientID:      cfg.Social.Google.ClientID,
		FacebookAppID:       cfg.Social.Facebook.AppID,
		PollInterval:        cfg.Social.PollInterval,
		SDKLoadTimeout:      cfg.Social.SDKLoadTimeout,
		AuthorizeTimeout:    cfg.Social.AuthorizeTimeout,
		DiscardLate:         cfg.Social.DiscardLateResults,
		RedisPrefix:         cfg.Session.RedisPrefix,
		SessionTTL:          cfg.Session.TTL,
		AuditEnabled:        cfg.Audit.Enabled,
		AuditShards:         cfg.Audit.Shards,
		MetricsEnabled:      cfg.Metrics.Enabled,
		LatencyEnabled:      cfg.Metrics.EnableLatencyHistograms,
	}
	if err := parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Routes.AdminDashboard = raw.AdminPath
	cfg.Routes.Home = raw.HomePath
	cfg.Routes.CompleteProfile = raw.CompleteProfilePath
	cfg.Login.AdminRole = raw.AdminRole
	cfg.Login.EnableThrottle = raw.EnableThrottle
	cfg.Login.EnableIPThrottle = raw.EnableIPThrottle
	cfg.Login.MaxAttempts = raw.MaxAttempts
	cfg.Login.Window = raw.Window
	cfg.Signup.MinimumAge = raw.MinimumAge
	cfg.Signup.DraftTTL = raw.DraftTTL
	cfg.Signup.DraftKey = raw.DraftKey
	cfg.Social.Google.ClientID = raw.GoogleClientID
	cfg.Social.Facebook.AppID = raw.FacebookAppID
	cfg.Social.PollInterval = raw.PollInterval
	cfg.Social.SDKLoadTimeout = raw.SDKLoadTimeout
	cfg.Social.AuthorizeTimeout = raw.AuthorizeTimeout
	cfg.Social.DiscardLateResults = raw.DiscardLate
	cfg.Session.RedisPrefix = raw.RedisPrefix
	cfg.Session.TTL = raw.SessionTTL
	cfg.Audit.Enabled = raw.AuditEnabled
	cfg.Audit.Shards = raw.AuditShards
	cfg.Metrics.Enabled = raw.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = raw.LatencyEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
