package authflow

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/internal/flows"
	"github.com/MrEthical07/authflow/social"
)

// SocialLogin runs the registered provider for name. Configuration and
// secure-context failures return a message without touching the provider.
// Cancellations, timeouts and service rejections reset the form silently.
func (c *Coordinator) SocialLogin(ctx context.Context, name social.Name) (Decision, error) {
	parsed, ok := social.ParseName(string(name))
	if !ok {
		return c.decision(flows.Decision{Route: flows.RouteStayOnForm}), ErrUnknownProvider
	}
	return c.runSocial(ctx, parsed, c.providers[parsed])
}

// SocialLoginWithToken completes a social login for a token the browser
// already obtained from the provider. Preconditions are the same as
// SocialLogin except that no provider needs to be registered.
func (c *Coordinator) SocialLoginWithToken(ctx context.Context, name social.Name, token string) (Decision, error) {
	parsed, ok := social.ParseName(string(name))
	if !ok {
		return c.decision(flows.Decision{Route: flows.RouteStayOnForm}), ErrUnknownProvider
	}
	return c.runSocial(ctx, parsed, social.TokenProvider{ProviderName: parsed, Token: token})
}

func (c *Coordinator) runSocial(ctx context.Context, name social.Name, p social.Provider) (Decision, error) {
	ctx = withForm(ctx, FormSocial)
	release, err := c.beginSubmission(ctx, string(FormSocial)+"_"+string(name))
	if err != nil {
		return c.decision(flows.Decision{Route: flows.RouteStayOnForm}), err
	}
	defer release()

	start := time.Now()
	defer c.observe(start)

	fd, err := flows.RunSocialLogin(ctx, name, c.socialDeps(ctx, name, p))
	d := c.decision(fd)
	c.recordDecision(FormSocial, name, d)
	return d, err
}

func (c *Coordinator) providerConfigured(name social.Name) bool {
	switch name {
	case social.Google:
		return c.config.Social.Google.ClientID != ""
	case social.Facebook:
		return c.config.Social.Facebook.AppID != ""
	default:
		return false
	}
}

func (c *Coordinator) socialDeps(ctx context.Context, name social.Name, p social.Provider) flows.SocialDeps {
	deps := flows.SocialDeps{
		Provider:             p,
		Configured:           p != nil && c.providerConfigured(name),
		RequireSecureContext: name == social.Facebook,
		SecureContext:        secureContextFromContext(ctx),
		SDKLoadTimeout:       c.config.Social.SDKLoadTimeout,
		AuthorizeTimeout:     c.config.Social.AuthorizeTimeout,
		SocialLogin: func(ctx context.Context, provider social.Name, token string) (flows.AuthReply, error) {
			res, err := c.service.SocialLogin(ctx, provider, token)
			if err != nil {
				return flows.AuthReply{}, err
			}
			return toReply(res), nil
		},
		SaveSession: c.saveSession,
		DiscardLate: c.config.Social.DiscardLateResults,
		Hooks:       c.hooks(),
		Metrics: flows.SocialMetrics{
			SocialSuccess:      int(MetricSocialLoginSuccess),
			SocialFailure:      int(MetricSocialLoginFailure),
			SocialCancelled:    int(MetricSocialLoginCancelled),
			SocialTimeout:      int(MetricSocialLoginTimeout),
			SocialLateResult:   int(MetricSocialLateResult),
			SDKLoadFailure:     int(MetricSocialSDKLoadFailure),
			ConfigError:        int(MetricSocialConfigError),
			AuthServiceFailure: int(MetricAuthServiceFailure),
			SessionSaved:       int(MetricSessionSaved),
		},
		Events: flows.SocialEvents{
			SocialSuccess:    auditEventSocialLoginSuccess,
			SocialFailure:    auditEventSocialLoginFailure,
			SocialCancelled:  auditEventSocialLoginCancelled,
			SocialTimeout:    auditEventSocialLoginTimeout,
			SocialLateResult: auditEventSocialLateResult,
			SocialConfig:     auditEventSocialConfigError,
		},
		Errors: flows.SocialErrors{
			ProviderNotConfigured:  ErrProviderNotConfigured,
			InsecureContext:        ErrInsecureContext,
			SDKLoadFailed:          ErrSDKLoadFailed,
			SocialTimeout:          ErrSocialTimeout,
			SocialProviderError:    ErrSocialProviderError,
			SocialLoginFailed:      ErrSocialLoginFailed,
			MissingCredential:      ErrSocialMissingCredential,
			AuthServiceUnavailable: ErrAuthServiceUnavailable,
		},
		Messages: flows.SocialMessages{
			NotConfiguredFormat:   c.config.Messages.SocialNotConfigured,
			InsecureContextFormat: c.config.Messages.SocialInsecureContext,
			SDKLoadFailedFormat:   c.config.Messages.SocialSDKLoadFailed,
			ProviderErrorFormat:   c.config.Messages.SocialProviderError,
			Success:               c.config.Messages.SocialSuccess,
		},
	}

	deps.OnLate = func(ctx context.Context, fd flows.Decision, err error) {
		d := c.decision(fd)
		c.recordDecision(FormSocial, name, d)
		if c.onLate != nil {
			c.onLate(ctx, name, d, err)
		}
	}

	return deps
}
