package flows

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/social"
)

const (
	mSocialSuccess = iota + 100
	mSocialFailure
	mSocialCancelled
	mSocialTimeout
	mSocialLate
	mSDKLoadFailure
	mConfigError
)

type fakeProvider struct {
	name      social.Name
	ready     bool
	readyErr  error
	authErr   error
	authorize func(complete func(social.Result))
	calls     int
}

func (p *fakeProvider) Name() social.Name { return p.name }
func (p *fakeProvider) IsReady() bool     { return p.ready }

func (p *fakeProvider) AwaitReady(context.Context, time.Duration) error {
	return p.readyErr
}

func (p *fakeProvider) Authorize(_ context.Context, complete func(social.Result)) error {
	p.calls++
	if p.authErr != nil {
		return p.authErr
	}
	if p.authorize != nil {
		p.authorize(complete)
	}
	return nil
}

func socialDeps(rec *recorder, p social.Provider, login func(context.Context, social.Name, string) (AuthReply, error)) SocialDeps {
	return SocialDeps{
		Provider:         p,
		Configured:       true,
		SecureContext:    true,
		SDKLoadTimeout:   time.Second,
		AuthorizeTimeout: 50 * time.Millisecond,
		SocialLogin:      login,
		Hooks:            rec.hooks("client-1"),
		Metrics: SocialMetrics{
			SocialSuccess:    mSocialSuccess,
			SocialFailure:    mSocialFailure,
			SocialCancelled:  mSocialCancelled,
			SocialTimeout:    mSocialTimeout,
			SocialLateResult: mSocialLate,
			SDKLoadFailure:   mSDKLoadFailure,
			ConfigError:      mConfigError,
		},
		Events: SocialEvents{
			SocialSuccess:    "social_login_success",
			SocialFailure:    "social_login_failure",
			SocialCancelled:  "social_login_cancelled",
			SocialTimeout:    "social_login_timeout",
			SocialLateResult: "social_login_late_result",
			SocialConfig:     "social_login_config_error",
		},
		Errors: SocialErrors{
			ProviderNotConfigured:  errNotConfigured,
			InsecureContext:        errInsecure,
			SDKLoadFailed:          errSDK,
			SocialTimeout:          errTimeout,
			SocialProviderError:    errProvider,
			SocialLoginFailed:      errSocialFailed,
			MissingCredential:      errMissingCredential,
			AuthServiceUnavailable: errServiceDown,
		},
		Messages: SocialMessages{
			NotConfiguredFormat:   "%s login is not configured",
			InsecureContextFormat: "%s login requires HTTPS",
			SDKLoadFailedFormat:   "Failed to load %s SDK",
			ProviderErrorFormat:   "%s login failed",
		},
	}
}

func okLogin(context.Context, social.Name, string) (AuthReply, error) {
	return AuthReply{Success: true, UserID: "u1", Role: "member"}, nil
}

func immediate(r social.Result) func(func(social.Result)) {
	return func(complete func(social.Result)) { complete(r) }
}

func TestRunSocialLoginSuccessRoutesHome(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true, authorize: immediate(social.Result{Token: "tok"})}
	var gotToken string
	deps := socialDeps(newRecorder(), p, func(_ context.Context, name social.Name, token string) (AuthReply, error) {
		gotToken = token
		return AuthReply{Success: true, UserID: "u1", Role: "admin"}, nil
	})

	d, err := RunSocialLogin(context.Background(), social.Google, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Route != RouteHome {
		t.Fatalf("expected home, got %s", d.Route)
	}
	if gotToken != "tok" {
		t.Fatalf("expected token forwarded, got %q", gotToken)
	}
}

func TestRunSocialLoginNotConfigured(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true}
	rec := newRecorder()
	deps := socialDeps(rec, p, okLogin)
	deps.Configured = false

	d, err := RunSocialLogin(context.Background(), social.Google, deps)
	if !errors.Is(err, errNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if d.Message != "Google login is not configured" || d.Severity != SeverityError {
		t.Fatalf("unexpected decision %+v", d)
	}
	if p.calls != 0 {
		t.Fatal("provider must not be touched when not configured")
	}
	if rec.count(mConfigError) != 1 {
		t.Fatal("expected config error metric")
	}
}

func TestRunSocialLoginInsecureContext(t *testing.T) {
	p := &fakeProvider{name: social.Facebook, ready: true}
	deps := socialDeps(newRecorder(), p, okLogin)
	deps.RequireSecureContext = true
	deps.SecureContext = false

	d, err := RunSocialLogin(context.Background(), social.Facebook, deps)
	if !errors.Is(err, errInsecure) {
		t.Fatalf("expected insecure context, got %v", err)
	}
	if d.Message != "Facebook login requires HTTPS" {
		t.Fatalf("unexpected message %q", d.Message)
	}
	if p.calls != 0 {
		t.Fatal("provider must not be touched on insecure context")
	}
}

func TestRunSocialLoginSDKLoadFailure(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: false, readyErr: errors.New("timed out")}
	deps := socialDeps(newRecorder(), p, okLogin)

	d, err := RunSocialLogin(context.Background(), social.Google, deps)
	if !errors.Is(err, errSDK) {
		t.Fatalf("expected sdk failure, got %v", err)
	}
	if d.Message != "Failed to load Google SDK" {
		t.Fatalf("unexpected message %q", d.Message)
	}
	if p.calls != 0 {
		t.Fatal("authorize must not run when the sdk never loaded")
	}
}

func TestRunSocialLoginCancellationsAreSilent(t *testing.T) {
	for _, cause := range []error{social.ErrCancelled, social.ErrPopupBlocked, social.ErrAccessDenied} {
		p := &fakeProvider{name: social.Google, ready: true, authorize: immediate(social.Result{Err: cause})}
		called := false
		deps := socialDeps(newRecorder(), p, func(context.Context, social.Name, string) (AuthReply, error) {
			called = true
			return AuthReply{Success: true}, nil
		})

		d, err := RunSocialLogin(context.Background(), social.Google, deps)
		if !errors.Is(err, cause) {
			t.Fatalf("expected %v, got %v", cause, err)
		}
		if d.Route != RouteStayOnForm || d.Message != "" || d.Severity != SeverityNone {
			t.Fatalf("%v: expected silent reset, got %+v", cause, d)
		}
		if called {
			t.Fatalf("%v: social login must not be called", cause)
		}
	}
}

func TestRunSocialLoginProviderErrorShowsMessage(t *testing.T) {
	pe := &social.ProviderError{Provider: social.Google, Code: "idpiframe_initialization_failed", Message: "Google sign-in is unavailable"}
	p := &fakeProvider{name: social.Google, ready: true, authorize: immediate(social.Result{Err: pe})}

	d, err := RunSocialLogin(context.Background(), social.Google, socialDeps(newRecorder(), p, okLogin))
	if !errors.Is(err, errProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if d.Message != "Google sign-in is unavailable" || d.Severity != SeverityError {
		t.Fatalf("unexpected decision %+v", d)
	}

	p = &fakeProvider{name: social.Facebook, ready: true, authorize: immediate(social.Result{Err: errors.New("boom")})}
	d, _ = RunSocialLogin(context.Background(), social.Facebook, socialDeps(newRecorder(), p, okLogin))
	if d.Message != "Facebook login failed" {
		t.Fatalf("expected generic provider message, got %q", d.Message)
	}
}

func TestRunSocialLoginAuthorizeReturnsError(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true, authErr: social.ErrPopupBlocked}

	d, err := RunSocialLogin(context.Background(), social.Google, socialDeps(newRecorder(), p, okLogin))
	if !errors.Is(err, social.ErrPopupBlocked) {
		t.Fatalf("expected popup blocked, got %v", err)
	}
	if d.Message != "" {
		t.Fatalf("expected silent reset, got %+v", d)
	}
}

func TestRunSocialLoginEmptyTokenIsSilent(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true, authorize: immediate(social.Result{})}

	d, err := RunSocialLogin(context.Background(), social.Google, socialDeps(newRecorder(), p, okLogin))
	if !errors.Is(err, errMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestRunSocialLoginServiceFailureIsSilent(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true, authorize: immediate(social.Result{Token: "tok"})}
	deps := socialDeps(newRecorder(), p, func(context.Context, social.Name, string) (AuthReply, error) {
		return AuthReply{Success: false, Error: "no account"}, nil
	})

	d, err := RunSocialLogin(context.Background(), social.Google, deps)
	if !errors.Is(err, errSocialFailed) {
		t.Fatalf("expected social login failed, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestRunSocialLoginTimeoutIsSilent(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true}
	rec := newRecorder()

	d, err := RunSocialLogin(context.Background(), social.Google, socialDeps(rec, p, okLogin))
	if !errors.Is(err, errTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if d.Route != RouteStayOnForm || d.Message != "" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if rec.count(mSocialTimeout) != 1 {
		t.Fatal("expected timeout metric")
	}
}

func TestRunSocialLoginLateResultCompletedWithoutHandler(t *testing.T) {
	var complete func(social.Result)
	p := &fakeProvider{name: social.Google, ready: true, authorize: func(c func(social.Result)) { complete = c }}
	rec := newRecorder()
	deps := socialDeps(rec, p, okLogin)
	var saved []string
	deps.SaveSession = func(_ context.Context, clientID string, _ AuthReply) error {
		saved = append(saved, clientID)
		return nil
	}

	if _, err := RunSocialLogin(context.Background(), social.Google, deps); !errors.Is(err, errTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	complete(social.Result{Token: "late"})
	if len(saved) != 1 || saved[0] != "client-1" {
		t.Fatalf("late success should save the session, saved %v", saved)
	}
	if rec.count(mSocialLate) != 1 || rec.count(mSocialSuccess) != 1 {
		t.Fatalf("expected late and success metrics, late=%d success=%d", rec.count(mSocialLate), rec.count(mSocialSuccess))
	}
}

func TestRunSocialLoginLateResultDiscardedWhenConfigured(t *testing.T) {
	var complete func(social.Result)
	p := &fakeProvider{name: social.Google, ready: true, authorize: func(c func(social.Result)) { complete = c }}
	called := false
	rec := newRecorder()
	deps := socialDeps(rec, p, func(context.Context, social.Name, string) (AuthReply, error) {
		called = true
		return AuthReply{Success: true}, nil
	})
	deps.DiscardLate = true
	deps.OnLate = func(context.Context, Decision, error) {
		t.Error("discarded late result must not reach the handler")
	}

	if _, err := RunSocialLogin(context.Background(), social.Google, deps); !errors.Is(err, errTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	complete(social.Result{Token: "late"})
	if called {
		t.Fatal("discarded late result must not reach social login")
	}
	if rec.count(mSocialLate) != 1 || rec.warns != 1 {
		t.Fatalf("expected late metric and warning, metric=%d warns=%d", rec.count(mSocialLate), rec.warns)
	}
}

func TestRunSocialLoginLateResultForwardedToHandler(t *testing.T) {
	var complete func(social.Result)
	p := &fakeProvider{name: social.Google, ready: true, authorize: func(c func(social.Result)) { complete = c }}
	deps := socialDeps(newRecorder(), p, okLogin)

	var (
		mu      sync.Mutex
		late    []Decision
		lateErr error
	)
	deps.OnLate = func(_ context.Context, d Decision, err error) {
		mu.Lock()
		late = append(late, d)
		lateErr = err
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := RunSocialLogin(ctx, social.Google, deps); !errors.Is(err, errTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	cancel()

	complete(social.Result{Token: "late"})
	complete(social.Result{Token: "later"})

	mu.Lock()
	defer mu.Unlock()
	if len(late) != 1 {
		t.Fatalf("expected exactly one late decision, got %d", len(late))
	}
	if late[0].Route != RouteHome || lateErr != nil {
		t.Fatalf("late success should still route home, got %+v err %v", late[0], lateErr)
	}
}

func TestRunSocialLoginContextCancelled(t *testing.T) {
	p := &fakeProvider{name: social.Google, ready: true}
	deps := socialDeps(newRecorder(), p, okLogin)
	deps.AuthorizeTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := RunSocialLogin(ctx, social.Google, deps)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if d.Message != "" {
		t.Fatalf("expected silent reset, got %+v", d)
	}
}
