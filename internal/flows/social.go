package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authflow/internal/settle"
	"github.com/MrEthical07/authflow/social"
)

// SocialMetrics carries metric IDs needed by the social login flow.
type SocialMetrics struct {
	SocialSuccess      int
	SocialFailure      int
	SocialCancelled    int
	SocialTimeout      int
	SocialLateResult   int
	SDKLoadFailure     int
	ConfigError        int
	AuthServiceFailure int
	SessionSaved       int
}

// SocialEvents carries audit event names used by the social login flow.
type SocialEvents struct {
	SocialSuccess    string
	SocialFailure    string
	SocialCancelled  string
	SocialTimeout    string
	SocialLateResult string
	SocialConfig     string
}

// SocialErrors carries host-level sentinel errors used by the social login flow.
type SocialErrors struct {
	ProviderNotConfigured  error
	InsecureContext        error
	SDKLoadFailed          error
	SocialTimeout          error
	SocialProviderError    error
	SocialLoginFailed      error
	MissingCredential      error
	AuthServiceUnavailable error
}

// SocialMessages carries the user-facing copy for the social login flow.
// Format strings receive the provider title.
type SocialMessages struct {
	NotConfiguredFormat   string
	InsecureContextFormat string
	SDKLoadFailedFormat   string
	ProviderErrorFormat   string
	Success               string
}

// SocialDeps captures social login dependencies for one attempt.
type SocialDeps struct {
	Provider             social.Provider
	Configured           bool
	RequireSecureContext bool
	SecureContext        bool
	SDKLoadTimeout       time.Duration
	AuthorizeTimeout     time.Duration

	SocialLogin func(ctx context.Context, provider social.Name, token string) (AuthReply, error)
	SaveSession func(ctx context.Context, clientID string, reply AuthReply) error

	// DiscardLate drops provider results that arrive after AuthorizeTimeout.
	// Otherwise they are still completed, so a late success saves a session.
	DiscardLate bool
	// OnLate, when set, receives the decision for a completed late result.
	OnLate func(context.Context, Decision, error)

	Hooks
	Metrics  SocialMetrics
	Events   SocialEvents
	Errors   SocialErrors
	Messages SocialMessages
}

// RunSocialLogin runs one social login attempt for name. Preconditions are
// checked before any provider interaction. The provider completion and the
// authorize deadline race; the first to settle decides the attempt.
func RunSocialLogin(ctx context.Context, name social.Name, deps SocialDeps) (Decision, error) {
	deps.Hooks = normalizeHooks(deps.Hooks)
	title := name.Title()

	if !deps.Configured || deps.Provider == nil || deps.SocialLogin == nil {
		deps.MetricInc(deps.Metrics.ConfigError)
		deps.EmitAudit(ctx, deps.Events.SocialConfig, false, "", RouteStayOnForm, deps.Errors.ProviderNotConfigured, providerMeta(name))
		return stay(fmt.Sprintf(deps.Messages.NotConfiguredFormat, title)), deps.Errors.ProviderNotConfigured
	}
	if deps.RequireSecureContext && !deps.SecureContext {
		deps.MetricInc(deps.Metrics.ConfigError)
		deps.EmitAudit(ctx, deps.Events.SocialConfig, false, "", RouteStayOnForm, deps.Errors.InsecureContext, providerMeta(name))
		return stay(fmt.Sprintf(deps.Messages.InsecureContextFormat, title)), deps.Errors.InsecureContext
	}

	if !deps.Provider.IsReady() {
		if err := deps.Provider.AwaitReady(ctx, deps.SDKLoadTimeout); err != nil {
			if ctx.Err() != nil {
				return silentReset(), ctx.Err()
			}
			deps.MetricInc(deps.Metrics.SDKLoadFailure)
			err = wrap(deps.Errors.SDKLoadFailed, err)
			deps.EmitAudit(ctx, deps.Events.SocialConfig, false, "", RouteStayOnForm, err, providerMeta(name))
			return stay(fmt.Sprintf(deps.Messages.SDKLoadFailedFormat, title)), err
		}
	}

	fut := settle.New[social.Result]()
	fut.OnLate(func(r social.Result) {
		lateCtx := context.WithoutCancel(ctx)
		deps.MetricInc(deps.Metrics.SocialLateResult)
		deps.EmitAudit(lateCtx, deps.Events.SocialLateResult, false, "", RouteStayOnForm, nil, providerMeta(name))
		if deps.DiscardLate {
			deps.Warn("late %s result after authorize timeout discarded", name)
			return
		}
		d, err := completeSocial(lateCtx, name, r, deps)
		if deps.OnLate != nil {
			deps.OnLate(lateCtx, d, err)
		}
	})

	if err := deps.Provider.Authorize(ctx, func(r social.Result) { fut.Resolve(r) }); err != nil {
		fut.Resolve(social.Result{Err: err})
	}

	res, outcome := fut.Await(ctx, deps.AuthorizeTimeout)
	switch outcome {
	case settle.TimedOut:
		// Indistinguishable from the user walking away.
		deps.MetricInc(deps.Metrics.SocialTimeout)
		deps.EmitAudit(ctx, deps.Events.SocialTimeout, false, "", RouteStayOnForm, deps.Errors.SocialTimeout, providerMeta(name))
		return silentReset(), deps.Errors.SocialTimeout
	case settle.Cancelled:
		return silentReset(), ctx.Err()
	}

	return completeSocial(ctx, name, res, deps)
}

func completeSocial(ctx context.Context, name social.Name, res social.Result, deps SocialDeps) (Decision, error) {
	if res.Err != nil {
		if social.IsCancellation(res.Err) {
			deps.MetricInc(deps.Metrics.SocialCancelled)
			deps.EmitAudit(ctx, deps.Events.SocialCancelled, false, "", RouteStayOnForm, res.Err, providerMeta(name))
			return silentReset(), res.Err
		}
		deps.MetricInc(deps.Metrics.SocialFailure)
		err := wrap(deps.Errors.SocialProviderError, res.Err)
		deps.EmitAudit(ctx, deps.Events.SocialFailure, false, "", RouteStayOnForm, err, providerMeta(name))
		return stay(providerErrorMessage(name, res.Err, deps.Messages.ProviderErrorFormat)), err
	}

	if res.Token == "" {
		deps.MetricInc(deps.Metrics.SocialCancelled)
		deps.EmitAudit(ctx, deps.Events.SocialCancelled, false, "", RouteStayOnForm, deps.Errors.MissingCredential, providerMeta(name))
		return silentReset(), deps.Errors.MissingCredential
	}

	reply, err := deps.SocialLogin(ctx, name, res.Token)
	if err != nil {
		deps.MetricInc(deps.Metrics.AuthServiceFailure)
		deps.MetricInc(deps.Metrics.SocialFailure)
		err = wrap(deps.Errors.AuthServiceUnavailable, err)
		deps.EmitAudit(ctx, deps.Events.SocialFailure, false, "", RouteStayOnForm, err, providerMeta(name))
		return silentReset(), err
	}
	if !reply.Success {
		deps.MetricInc(deps.Metrics.SocialFailure)
		deps.EmitAudit(ctx, deps.Events.SocialFailure, false, reply.UserID, RouteStayOnForm, deps.Errors.SocialLoginFailed, providerMeta(name))
		return silentReset(), deps.Errors.SocialLoginFailed
	}

	clientID := deps.ClientIDFromContext(ctx)
	if deps.SaveSession != nil && clientID != "" {
		if serr := deps.SaveSession(ctx, clientID, reply); serr != nil {
			deps.Warn("save session after %s login failed: %v", name, serr)
		} else {
			deps.MetricInc(deps.Metrics.SessionSaved)
		}
	}

	deps.MetricInc(deps.Metrics.SocialSuccess)
	deps.EmitAudit(ctx, deps.Events.SocialSuccess, true, reply.UserID, RouteHome, nil, providerMeta(name))

	return Decision{Route: RouteHome, Message: deps.Messages.Success, Severity: SeveritySuccess}, nil
}

func providerErrorMessage(name social.Name, err error, format string) string {
	var pe *social.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return fmt.Sprintf(format, name.Title())
}

func providerMeta(name social.Name) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"provider": string(name)}
	}
}
