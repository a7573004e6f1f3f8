package authflow

import (
	"errors"
	"strings"
	"time"
)

// Config holds every Coordinator setting. Start from DefaultConfig and
// override what you need.
type Config struct {
	Routes   RoutesConfig
	Messages MessagesConfig
	Login    LoginConfig
	Signup   SignupConfig
	Social   SocialConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
ROUTES
====================================
*/

// RoutesConfig maps each Route to the path the browser is sent to.
type RoutesConfig struct {
	AdminDashboard  string
	Home            string
	CompleteProfile string
}

/*
====================================
MESSAGES
====================================
*/

// MessagesConfig is the user-facing copy. Format strings receive the
// provider title.
type MessagesConfig struct {
	DefaultLoginFailure string
	AdminAccessDenied   string
	LoginRateLimited    string
	LoginSuccess        string

	PasswordMismatch      string
	PhoneRequired         string
	InvalidGender         string
	DateOfBirthOutOfRange string
	SignupSuccess         string

	SocialNotConfigured   string
	SocialInsecureContext string
	SocialSDKLoadFailed   string
	SocialProviderError   string
	SocialSuccess         string
}

const (
	// DefaultLoginFailureMessage is shown when the auth service rejects a
	// login without a message of its own.
	DefaultLoginFailureMessage = "Account or password is incorrect"
	// AdminAccessDeniedMessage is shown when a non-admin uses the admin form.
	AdminAccessDeniedMessage = "Access denied. Admin privileges required."
)

/*
====================================
LOGIN
====================================
*/

// LoginConfig controls the login and admin-login flows.
type LoginConfig struct {
	AdminRole string

	// Throttle settings apply only when a Redis client is configured.
	EnableThrottle   bool
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

/*
====================================
SIGNUP
====================================
*/

// SignupConfig controls the two-phase signup.
type SignupConfig struct {
	MinimumAge int
	MaximumAge int
	DraftTTL   time.Duration

	// DraftKey is a base64 encoded 32-byte key sealing the password kept in
	// profile-phase drafts. Instances sharing a Redis must share it. Empty
	// generates a key per Coordinator.
	DraftKey string
}

/*
====================================
SOCIAL
====================================
*/

// SocialConfig controls social login. A provider without an id is treated
// as not configured.
type SocialConfig struct {
	Google   GoogleConfig
	Facebook FacebookConfig

	PollInterval     time.Duration
	SDKLoadTimeout   time.Duration
	AuthorizeTimeout time.Duration

	// DiscardLateResults drops provider results that arrive after
	// AuthorizeTimeout instead of completing the login in the background.
	DiscardLateResults bool
}

// GoogleConfig identifies the Google client.
type GoogleConfig struct {
	ClientID string
}

// FacebookConfig identifies the Facebook app.
type FacebookConfig struct {
	AppID string
}

/*
====================================
SESSION / AUDIT / METRICS
====================================
*/

// SessionConfig controls the Redis session and draft store built by
// Builder.WithRedis.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// AuditConfig controls the async audit dispatcher.
//
// Events are spread over Shards queues by client id, so one client's events
// reach the sink in emission order. BufferSize is per shard.
type AuditConfig struct {
	Enabled    bool
	Shards     int
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Routes: RoutesConfig{
			AdminDashboard:  "/admin",
			Home:            "/home",
			CompleteProfile: "/complete-profile",
		},
		Messages: MessagesConfig{
			DefaultLoginFailure: DefaultLoginFailureMessage,
			AdminAccessDenied:   AdminAccessDeniedMessage,
			LoginRateLimited:    "Too many login attempts. Please try again later.",
			LoginSuccess:        "Welcome back!",

			PasswordMismatch:      "Passwords do not match",
			PhoneRequired:         "Phone number is required",
			InvalidGender:         "Please select a gender",
			DateOfBirthOutOfRange: "You must be at least 18 years old to sign up",
			SignupSuccess:         "Account created! Let's finish your profile.",

			SocialNotConfigured:   "%s login is not configured",
			SocialInsecureContext: "%s login requires a secure connection (HTTPS or localhost)",
			SocialSDKLoadFailed:   "Failed to load %s SDK",
			SocialProviderError:   "%s login failed. Please try again.",
			SocialSuccess:         "Welcome!",
		},
		Login: LoginConfig{
			AdminRole:        "admin",
			EnableThrottle:   true,
			EnableIPThrottle: false,
			MaxAttempts:      5,
			Window:           15 * time.Minute,
		},
		Signup: SignupConfig{
			MinimumAge: 18,
			MaximumAge: 120,
			DraftTTL:   30 * time.Minute,
		},
		Social: SocialConfig{
			PollInterval:     100 * time.Millisecond,
			SDKLoadTimeout:   10 * time.Second,
			AuthorizeTimeout: 5 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "af",
			TTL:         24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			Shards:     4,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Routes
	for _, p := range []string{c.Routes.AdminDashboard, c.Routes.Home, c.Routes.CompleteProfile} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Routes paths must start with '/'")
		}
	}

	// Messages
	if c.Messages.DefaultLoginFailure == "" {
		return errors.New("Messages DefaultLoginFailure must not be empty")
	}
	if c.Messages.AdminAccessDenied == "" {
		return errors.New("Messages AdminAccessDenied must not be empty")
	}
	for _, f := range []string{
		c.Messages.SocialNotConfigured,
		c.Messages.SocialInsecureContext,
		c.Messages.SocialSDKLoadFailed,
		c.Messages.SocialProviderError,
	} {
		if strings.Count(f, "%s") != 1 {
			return errors.New("Messages social formats must contain exactly one %s")
		}
	}

	// Login
	if strings.TrimSpace(c.Login.AdminRole) == "" {
		return errors.New("Login AdminRole must not be empty")
	}
	if c.Login.EnableThrottle {
		if c.Login.MaxAttempts <= 0 {
			return errors.New("Login MaxAttempts must be > 0")
		}
		if c.Login.Window <= 0 {
			return errors.New("Login Window must be > 0")
		}
	}

	// Signup
	if c.Signup.MinimumAge < 0 {
		return errors.New("Signup MinimumAge must be >= 0")
	}
	if c.Signup.MaximumAge <= c.Signup.MinimumAge {
		return errors.New("Signup MaximumAge must be > MinimumAge")
	}
	if c.Signup.DraftTTL <= 0 {
		return errors.New("Signup DraftTTL must be > 0")
	}
	if c.Signup.DraftKey != "" {
		if _, err := decodeDraftKey(c.Signup.DraftKey); err != nil {
			return err
		}
	}

	// Social
	if c.Social.PollInterval <= 0 {
		return errors.New("Social PollInterval must be > 0")
	}
	if c.Social.SDKLoadTimeout <= 0 {
		return errors.New("Social SDKLoadTimeout must be > 0")
	}
	if c.Social.AuthorizeTimeout <= 0 {
		return errors.New("Social AuthorizeTimeout must be > 0")
	}
	if c.Social.AuthorizeTimeout >= c.Social.SDKLoadTimeout {
		return errors.New("Social AuthorizeTimeout must be shorter than SDKLoadTimeout")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if strings.ContainsAny(c.Session.RedisPrefix, " :") {
		return errors.New("Session RedisPrefix must not contain spaces or ':'")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.Enabled && c.Audit.Shards <= 0 {
		return errors.New("Audit Shards must be > 0 when enabled")
	}

	return nil
}
