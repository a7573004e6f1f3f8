package flows

import (
	"context"
	"errors"
)

// LoginMetrics carries metric IDs needed by the login flows.
type LoginMetrics struct {
	LoginSuccess       int
	LoginFailure       int
	LoginRateLimited   int
	AdminLoginSuccess  int
	AdminAccessDenied  int
	AuthServiceFailure int
	SessionSaved       int
	SessionCleared     int
}

// LoginEvents carries audit event names used by the login flows.
type LoginEvents struct {
	LoginSuccess      string
	LoginFailure      string
	LoginRateLimited  string
	AdminLoginSuccess string
	AdminLoginFailure string
	AdminAccessDenied string
}

// LoginErrors carries host-level sentinel errors used by the login flows.
type LoginErrors struct {
	CoordinatorNotReady    error
	InvalidCredentials     error
	LoginRateLimited       error
	AdminAccessDenied      error
	AuthServiceUnavailable error
}

// LoginMessages carries the user-facing copy for the login flows.
type LoginMessages struct {
	DefaultFailure    string
	AdminAccessDenied string
	RateLimited       string
	Success           string
}

// LoginDeps captures login and admin-login dependencies.
type LoginDeps struct {
	AdminRole string

	Login        func(ctx context.Context, identifier, password string) (AuthReply, error)
	SaveSession  func(ctx context.Context, clientID string, reply AuthReply) error
	ClearSession func(ctx context.Context, clientID string) error

	CheckLoginRate     func(ctx context.Context, identifier, ip string) error
	RecordLoginFailure func(ctx context.Context, identifier, ip string) error
	ResetLoginRate     func(ctx context.Context, identifier string) error

	Hooks
	Metrics  LoginMetrics
	Events   LoginEvents
	Errors   LoginErrors
	Messages LoginMessages
}

// RunLogin executes the member login flow: admins go to the dashboard and
// everyone else goes home. Profile completeness is not considered here.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) (Decision, error) {
	return runLogin(ctx, identifier, password, false, deps)
}

// RunAdminLogin executes the admin login flow. A non-admin success is a
// denial: the client's stored session is cleared and no navigation happens.
func RunAdminLogin(ctx context.Context, identifier, password string, deps LoginDeps) (Decision, error) {
	return runLogin(ctx, identifier, password, true, deps)
}

func runLogin(ctx context.Context, identifier, password string, adminOnly bool, deps LoginDeps) (Decision, error) {
	deps.Hooks = normalizeHooks(deps.Hooks)
	if deps.Login == nil {
		return stay(deps.Messages.DefaultFailure), deps.Errors.CoordinatorNotReady
	}

	clientID := deps.ClientIDFromContext(ctx)
	ip := deps.ClientIPFromContext(ctx)

	failureEvent := deps.Events.LoginFailure
	successEvent := deps.Events.LoginSuccess
	if adminOnly {
		failureEvent = deps.Events.AdminLoginFailure
		successEvent = deps.Events.AdminLoginSuccess
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			if errors.Is(err, deps.Errors.LoginRateLimited) {
				deps.MetricInc(deps.Metrics.LoginRateLimited)
				deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", RouteStayOnForm, err, func() map[string]string {
					return map[string]string{"admin": boolString(adminOnly)}
				})
				return stay(deps.Messages.RateLimited), err
			}
			// Throttle backend trouble must not lock users out.
			deps.Warn("login throttle check failed: %v", err)
		}
	}

	reply, err := deps.Login(ctx, identifier, password)
	if err != nil {
		deps.MetricInc(deps.Metrics.AuthServiceFailure)
		deps.MetricInc(deps.Metrics.LoginFailure)
		err = wrap(deps.Errors.AuthServiceUnavailable, err)
		deps.EmitAudit(ctx, failureEvent, false, "", RouteStayOnForm, err, nil)
		return stay(deps.Messages.DefaultFailure), err
	}

	if !reply.Success {
		deps.MetricInc(deps.Metrics.LoginFailure)
		if deps.RecordLoginFailure != nil {
			if rerr := deps.RecordLoginFailure(ctx, identifier, ip); rerr != nil {
				deps.Warn("login throttle record failed: %v", rerr)
			}
		}
		msg := reply.Error
		if msg == "" {
			msg = deps.Messages.DefaultFailure
		}
		deps.EmitAudit(ctx, failureEvent, false, reply.UserID, RouteStayOnForm, deps.Errors.InvalidCredentials, nil)
		return stay(msg), deps.Errors.InvalidCredentials
	}

	if deps.ResetLoginRate != nil {
		if rerr := deps.ResetLoginRate(ctx, identifier); rerr != nil {
			deps.Warn("login throttle reset failed: %v", rerr)
		}
	}

	isAdmin := reply.Role == deps.AdminRole

	if adminOnly && !isAdmin {
		cleared := false
		// Without a client id there is no stored session to clear.
		if deps.ClearSession != nil && clientID != "" {
			if cerr := deps.ClearSession(ctx, clientID); cerr != nil {
				deps.Warn("clear session for denied admin login failed: %v", cerr)
			} else {
				cleared = true
				deps.MetricInc(deps.Metrics.SessionCleared)
			}
		}
		deps.MetricInc(deps.Metrics.AdminAccessDenied)
		deps.EmitAudit(ctx, deps.Events.AdminAccessDenied, false, reply.UserID, RouteStayOnForm, deps.Errors.AdminAccessDenied, func() map[string]string {
			return map[string]string{"role": reply.Role}
		})
		d := stay(deps.Messages.AdminAccessDenied)
		d.ClearedSession = cleared
		return d, deps.Errors.AdminAccessDenied
	}

	route := RouteHome
	if isAdmin {
		route = RouteAdminDashboard
	}

	if deps.SaveSession != nil && clientID != "" {
		if serr := deps.SaveSession(ctx, clientID, reply); serr != nil {
			deps.Warn("save session failed: %v", serr)
		} else {
			deps.MetricInc(deps.Metrics.SessionSaved)
		}
	}

	if adminOnly {
		deps.MetricInc(deps.Metrics.AdminLoginSuccess)
	} else {
		deps.MetricInc(deps.Metrics.LoginSuccess)
	}
	deps.EmitAudit(ctx, successEvent, true, reply.UserID, route, nil, func() map[string]string {
		return map[string]string{"role": reply.Role}
	})

	return Decision{Route: route, Message: deps.Messages.Success, Severity: SeveritySuccess}, nil
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
