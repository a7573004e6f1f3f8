package flows

import (
	"context"
	"fmt"
)

// Route is the flow-local navigation target. The root package maps it to
// its public Route and a configured path.
type Route string

const (
	RouteStayOnForm      Route = "stay_on_form"
	RouteAdminDashboard  Route = "admin_dashboard"
	RouteHome            Route = "home"
	RouteCompleteProfile Route = "complete_profile"
)

// Severity classifies the feedback shown with a decision.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityError
)

// Decision is the flow-local routing outcome.
type Decision struct {
	Route          Route
	Message        string
	Severity       Severity
	ClearedSession bool
}

func stay(message string) Decision {
	if message == "" {
		return Decision{Route: RouteStayOnForm}
	}
	return Decision{Route: RouteStayOnForm, Message: message, Severity: SeverityError}
}

// silentReset leaves the form idle with no feedback.
func silentReset() Decision {
	return Decision{Route: RouteStayOnForm}
}

// AuthReply is the flow-local view of an auth service result.
type AuthReply struct {
	Success         bool
	UserID          string
	Role            string
	ProfileComplete bool
	Token           string
	Error           string
}

// AuditFunc emits one audit event. route is the decision route name.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, route Route, err error, metadata func() map[string]string)

// Hooks are the ambient dependencies shared by every flow.
type Hooks struct {
	ClientIDFromContext func(context.Context) string
	ClientIPFromContext func(context.Context) string
	MetricInc           func(int)
	EmitAudit           AuditFunc
	Warn                func(string, ...any)
}

func normalizeHooks(h Hooks) Hooks {
	if h.ClientIDFromContext == nil {
		h.ClientIDFromContext = func(context.Context) string { return "" }
	}
	if h.ClientIPFromContext == nil {
		h.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, Route, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, ...any) {}
	}
	return h
}

// wrap attaches cause to a host sentinel so both match errors.Is.
func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
