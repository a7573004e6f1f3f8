package authflow

import (
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/session"
	"github.com/MrEthical07/authflow/social"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Coordinator. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	service   AuthService
	sessions  SessionStore
	drafts    DraftStore
	providers []social.Provider
	onLate    LateSocialHandler
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAuthService sets the upstream auth service. Required.
func (b *Builder) WithAuthService(s AuthService) *Builder {
	b.service = s
	return b
}

// WithRedis backs sessions, signup drafts and the login throttle with
// client. Explicit WithSessionStore and WithDraftStore values win.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore sets where successful logins are recorded.
func (b *Builder) WithSessionStore(s SessionStore) *Builder {
	b.sessions = s
	return b
}

// WithDraftStore sets where in-progress signups are kept between requests.
func (b *Builder) WithDraftStore(s DraftStore) *Builder {
	b.drafts = s
	return b
}

// WithProvider registers a social provider under p.Name(). A later
// registration for the same name replaces the earlier one.
func (b *Builder) WithProvider(p social.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithLateSocialHandler receives the decision for a provider result that
// arrived after the authorize timeout. Late results are completed whether or
// not a handler is set, unless Social.DiscardLateResults is on.
func (b *Builder) WithLateSocialHandler(fn LateSocialHandler) *Builder {
	b.onLate = fn
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the submit latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Coordinator.
func (b *Builder) Build() (*Coordinator, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.service == nil {
		return nil, errors.New("auth service required")
	}

	c := &Coordinator{
		config:    cfg,
		service:   b.service,
		sessions:  b.sessions,
		drafts:    b.drafts,
		providers: make(map[social.Name]social.Provider, len(b.providers)),
		onLate:    b.onLate,
		now:       time.Now,
	}

	if b.redis != nil {
		store := session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL)
		if c.sessions == nil {
			c.sessions = store
		}
		if c.drafts == nil {
			c.drafts = store
		}
		if cfg.Login.EnableThrottle {
			c.throttle = rate.New(b.redis, rate.Config{
				KeyPrefix:        cfg.Session.RedisPrefix,
				EnableIPThrottle: cfg.Login.EnableIPThrottle,
				MaxAttempts:      cfg.Login.MaxAttempts,
				Window:           cfg.Login.Window,
			})
		}
	}

	for _, p := range b.providers {
		if p == nil {
			return nil, errors.New("nil social provider")
		}
		name := p.Name()
		if _, ok := social.ParseName(string(name)); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
		}
		if sdk, ok := p.(*social.SDK); ok && sdk.PollInterval <= 0 {
			cp := *sdk
			cp.PollInterval = cfg.Social.PollInterval
			p = &cp
		}
		c.providers[name] = p
	}

	sealer, err := newDraftSealer(cfg.Signup.DraftKey)
	if err != nil {
		return nil, err
	}
	c.sealer = sealer

	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		Shards:     cfg.Audit.Shards,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	c.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return c, nil
}
