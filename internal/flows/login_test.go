package flows

import (
	"context"
	"errors"
	"testing"
)

const (
	mLoginSuccess = iota + 1
	mLoginFailure
	mLoginRateLimited
	mAdminSuccess
	mAdminDenied
	mServiceFailure
	mSessionSaved
	mSessionCleared
)

type loginHarness struct {
	rec      *recorder
	reply    AuthReply
	err      error
	saved    []string
	cleared  []string
	rateErr  error
	failures int
	resets   int
}

func (h *loginHarness) deps() LoginDeps {
	return LoginDeps{
		AdminRole: "admin",
		Login: func(context.Context, string, string) (AuthReply, error) {
			return h.reply, h.err
		},
		SaveSession: func(_ context.Context, clientID string, _ AuthReply) error {
			h.saved = append(h.saved, clientID)
			return nil
		},
		ClearSession: func(_ context.Context, clientID string) error {
			h.cleared = append(h.cleared, clientID)
			return nil
		},
		CheckLoginRate: func(context.Context, string, string) error { return h.rateErr },
		RecordLoginFailure: func(context.Context, string, string) error {
			h.failures++
			return nil
		},
		ResetLoginRate: func(context.Context, string) error {
			h.resets++
			return nil
		},
		Hooks: h.rec.hooks("client-1"),
		Metrics: LoginMetrics{
			LoginSuccess:       mLoginSuccess,
			LoginFailure:       mLoginFailure,
			LoginRateLimited:   mLoginRateLimited,
			AdminLoginSuccess:  mAdminSuccess,
			AdminAccessDenied:  mAdminDenied,
			AuthServiceFailure: mServiceFailure,
			SessionSaved:       mSessionSaved,
			SessionCleared:     mSessionCleared,
		},
		Events: LoginEvents{
			LoginSuccess:      "login_success",
			LoginFailure:      "login_failure",
			LoginRateLimited:  "login_rate_limited",
			AdminLoginSuccess: "admin_login_success",
			AdminLoginFailure: "admin_login_failure",
			AdminAccessDenied: "admin_access_denied",
		},
		Errors: LoginErrors{
			CoordinatorNotReady:    errNotReady,
			InvalidCredentials:     errInvalidCreds,
			LoginRateLimited:       errRateLimited,
			AdminAccessDenied:      errAdminDenied,
			AuthServiceUnavailable: errServiceDown,
		},
		Messages: LoginMessages{
			DefaultFailure:    "Account or password is incorrect",
			AdminAccessDenied: "Access denied. Admin privileges required.",
			RateLimited:       "Too many attempts",
			Success:           "Welcome back",
		},
	}
}

func newLoginHarness(reply AuthReply) *loginHarness {
	return &loginHarness{rec: newRecorder(), reply: reply}
}

func TestRunLoginAdminRoutesToDashboard(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, UserID: "u1", Role: "admin"})

	d, err := RunLogin(context.Background(), "a@x", "pw", h.deps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Route != RouteAdminDashboard || d.Severity != SeveritySuccess {
		t.Fatalf("unexpected decision %+v", d)
	}
	if len(h.saved) != 1 || h.saved[0] != "client-1" {
		t.Fatalf("expected session saved for client-1, got %v", h.saved)
	}
	if h.resets != 1 {
		t.Fatalf("expected throttle reset, got %d", h.resets)
	}
	if h.rec.count(mLoginSuccess) != 1 {
		t.Fatal("expected login success metric")
	}
}

func TestRunLoginMemberRoutesHomeRegardlessOfProfile(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, UserID: "u2", Role: "member", ProfileComplete: false})

	d, err := RunLogin(context.Background(), "m@x", "pw", h.deps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Route != RouteHome {
		t.Fatalf("expected home, got %s", d.Route)
	}
}

func TestRunLoginFailureShowsServiceMessage(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: false, Error: "bad creds"})

	d, err := RunLogin(context.Background(), "m@x", "pw", h.deps())
	if !errors.Is(err, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "bad creds" || d.Severity != SeverityError {
		t.Fatalf("unexpected decision %+v", d)
	}
	if h.failures != 1 {
		t.Fatalf("expected failure recorded, got %d", h.failures)
	}
	if len(h.saved) != 0 {
		t.Fatal("failure must not save a session")
	}
}

func TestRunLoginFailureDefaultMessage(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: false})

	d, _ := RunLogin(context.Background(), "m@x", "pw", h.deps())
	if d.Message != "Account or password is incorrect" {
		t.Fatalf("expected default message, got %q", d.Message)
	}
}

func TestRunLoginTransportErrorUsesDefaultMessage(t *testing.T) {
	h := newLoginHarness(AuthReply{})
	h.err = errors.New("dial tcp: refused")

	d, err := RunLogin(context.Background(), "m@x", "pw", h.deps())
	if !errors.Is(err, errServiceDown) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "Account or password is incorrect" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if h.rec.count(mServiceFailure) != 1 {
		t.Fatal("expected service failure metric")
	}
}

func TestRunLoginRateLimited(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, Role: "admin"})
	h.rateErr = errRateLimited

	d, err := RunLogin(context.Background(), "m@x", "pw", h.deps())
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "Too many attempts" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if h.rec.lastEvent() != "login_rate_limited" {
		t.Fatalf("unexpected event %q", h.rec.lastEvent())
	}
}

func TestRunLoginThrottleBackendErrorFailsOpen(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, Role: "member"})
	h.rateErr = errors.New("redis down")

	d, err := RunLogin(context.Background(), "m@x", "pw", h.deps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Route != RouteHome {
		t.Fatalf("expected home, got %s", d.Route)
	}
	if h.rec.warns == 0 {
		t.Fatal("expected a warning for the throttle failure")
	}
}

func TestRunAdminLoginDeniesMember(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, UserID: "u2", Role: "member"})

	d, err := RunAdminLogin(context.Background(), "m@x", "pw", h.deps())
	if !errors.Is(err, errAdminDenied) {
		t.Fatalf("expected admin denied, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "Access denied. Admin privileges required." {
		t.Fatalf("unexpected decision %+v", d)
	}
	if !d.ClearedSession || len(h.cleared) != 1 || h.cleared[0] != "client-1" {
		t.Fatalf("expected session cleared, decision %+v cleared %v", d, h.cleared)
	}
	if len(h.saved) != 0 {
		t.Fatal("denied admin login must not save a session")
	}
	if h.rec.lastEvent() != "admin_access_denied" {
		t.Fatalf("unexpected event %q", h.rec.lastEvent())
	}
}

func TestRunAdminLoginDeniedWithoutClientClearsNothing(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, UserID: "u2", Role: "member"})
	deps := h.deps()
	deps.Hooks = h.rec.hooks("")

	d, err := RunAdminLogin(context.Background(), "m@x", "pw", deps)
	if !errors.Is(err, errAdminDenied) {
		t.Fatalf("expected admin denied, got %v", err)
	}
	if d.ClearedSession {
		t.Fatalf("nothing was cleared, decision %+v", d)
	}
	if len(h.cleared) != 0 {
		t.Fatalf("ClearSession called with %v", h.cleared)
	}
	if h.rec.count(mSessionCleared) != 0 {
		t.Fatal("session cleared metric must stay zero")
	}
	if h.rec.count(mAdminDenied) != 1 {
		t.Fatal("denial must still be counted")
	}
}

func TestRunAdminLoginClearFailureIsNotReportedAsCleared(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, UserID: "u2", Role: "member"})
	deps := h.deps()
	deps.ClearSession = func(context.Context, string) error { return errors.New("redis down") }

	d, _ := RunAdminLogin(context.Background(), "m@x", "pw", deps)
	if d.ClearedSession || h.rec.count(mSessionCleared) != 0 {
		t.Fatalf("failed clear reported as cleared: %+v", d)
	}
	if h.rec.warns == 0 {
		t.Fatal("expected a warning for the failed clear")
	}
}

func TestRunAdminLoginAcceptsAdmin(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: true, UserID: "u1", Role: "admin"})

	d, err := RunAdminLogin(context.Background(), "a@x", "pw", h.deps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Route != RouteAdminDashboard {
		t.Fatalf("expected admin dashboard, got %s", d.Route)
	}
	if h.rec.count(mAdminSuccess) != 1 {
		t.Fatal("expected admin success metric")
	}
}

func TestRunAdminLoginFailureDefaultMessage(t *testing.T) {
	h := newLoginHarness(AuthReply{Success: false})

	d, err := RunAdminLogin(context.Background(), "a@x", "pw", h.deps())
	if !errors.Is(err, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if d.Message != "Account or password is incorrect" || d.ClearedSession {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	deps := newLoginHarness(AuthReply{}).deps()
	deps.Login = nil

	if _, err := RunLogin(context.Background(), "x", "y", deps); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}
