package authflow

import (
	"context"
	"log"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/flows"
	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/session"
	"github.com/MrEthical07/authflow/social"
)

// Coordinator turns form submissions into routing decisions.
type Coordinator struct {
	config    Config
	service   AuthService
	sessions  SessionStore
	drafts    DraftStore
	sealer    *draftSealer
	throttle  *rate.Throttle
	providers map[social.Name]social.Provider
	onLate    LateSocialHandler
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	now       func() time.Time

	inflight sync.Map
}

// Close flushes pending audit events and stops the dispatcher.
func (c *Coordinator) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (c *Coordinator) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// AuditDroppedByForm splits AuditDropped by the form that emitted the
// events. Forms without drops are absent.
func (c *Coordinator) AuditDroppedByForm() map[Form]uint64 {
	out := map[Form]uint64{}
	if c == nil || c.audit == nil {
		return out
	}
	for form, n := range c.audit.DroppedByForm() {
		out[Form(form)] = n
	}
	return out
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (c *Coordinator) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// Config returns a copy of the active configuration.
func (c *Coordinator) Config() Config {
	return cloneConfig(c.config)
}

// PathFor returns the configured path for r, or "" for RouteStayOnForm.
func (c *Coordinator) PathFor(r Route) string {
	switch r {
	case RouteAdminDashboard:
		return c.config.Routes.AdminDashboard
	case RouteHome:
		return c.config.Routes.Home
	case RouteCompleteProfile:
		return c.config.Routes.CompleteProfile
	default:
		return ""
	}
}

func (c *Coordinator) decision(d flows.Decision) Decision {
	r := Route(d.Route)
	return Decision{
		Route:          r,
		Path:           c.PathFor(r),
		Message:        d.Message,
		Severity:       Severity(d.Severity),
		ClearedSession: d.ClearedSession,
	}
}

func (c *Coordinator) hooks() flows.Hooks {
	return flows.Hooks{
		ClientIDFromContext: clientIDFromContext,
		ClientIPFromContext: clientIPFromContext,
		MetricInc:           c.metricInc,
		EmitAudit:           c.emitAudit,
		Warn:                warnf,
	}
}

// recordDecision counts d for form. It runs for every flow decision,
// including late social results.
func (c *Coordinator) recordDecision(form Form, provider social.Name, d Decision) {
	c.metrics.RecordDecision(form, provider, d.Route)
}

func (c *Coordinator) metricInc(id int) {
	c.metrics.Inc(MetricID(id))
}

func (c *Coordinator) observe(start time.Time) {
	if c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricSubmitLatency, time.Since(start))
	}
}

// beginSubmission marks gate as in flight for the client in ctx. Without a
// client id there is nothing to key on and every submission proceeds.
func (c *Coordinator) beginSubmission(ctx context.Context, gate string) (func(), error) {
	clientID := clientIDFromContext(ctx)
	if clientID == "" {
		return func() {}, nil
	}

	key := gate + "\x00" + clientID
	if _, busy := c.inflight.LoadOrStore(key, struct{}{}); busy {
		c.metrics.Inc(MetricSubmissionRejected)
		c.emitAudit(ctx, auditEventSubmissionRejected, false, "", flows.RouteStayOnForm, ErrSubmissionInFlight, func() map[string]string {
			return map[string]string{"gate": gate}
		})
		return nil, ErrSubmissionInFlight
	}
	return func() { c.inflight.Delete(key) }, nil
}

func (c *Coordinator) saveSession(ctx context.Context, clientID string, reply flows.AuthReply) error {
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Save(ctx, &session.Record{
		ClientID:        clientID,
		UserID:          reply.UserID,
		Role:            reply.Role,
		ProfileComplete: reply.ProfileComplete,
		Token:           reply.Token,
	})
}

func (c *Coordinator) clearSession(ctx context.Context, clientID string) error {
	if clientID == "" {
		return errNoClientID
	}
	if err := c.sessions.Delete(ctx, clientID); err != nil {
		return err
	}
	if c.drafts != nil {
		return c.drafts.DeleteDraft(ctx, clientID)
	}
	return nil
}

func toReply(res AuthResult) flows.AuthReply {
	reply := flows.AuthReply{
		Success: res.Success,
		Error:   res.Error,
	}
	if res.User != nil {
		reply.UserID = res.User.ID
		reply.Role = res.User.Role
		reply.ProfileComplete = res.User.ProfileComplete
		reply.Token = res.User.Token
	}
	return reply
}

func warnf(format string, args ...any) {
	log.Printf("authflow: "+format, args...)
}
