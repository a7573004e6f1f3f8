package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authflow/internal/flows"
	"github.com/MrEthical07/authflow/internal/rate"
)

// Login submits the member login form. An admin role routes to the admin
// dashboard and every other role routes home. Profile completion is left to
// route guards.
func (c *Coordinator) Login(ctx context.Context, cred Credential, opts LoginOptions) (Decision, error) {
	return c.runLogin(ctx, FormLogin, cred, opts, flows.RunLogin)
}

// AdminLogin submits the admin login form. A successful non-admin login is
// a denial: the client's stored session is cleared and the browser stays on
// the form with AdminAccessDeniedMessage.
func (c *Coordinator) AdminLogin(ctx context.Context, cred Credential, opts LoginOptions) (Decision, error) {
	return c.runLogin(ctx, FormAdminLogin, cred, opts, flows.RunAdminLogin)
}

type loginRunner func(context.Context, string, string, flows.LoginDeps) (flows.Decision, error)

func (c *Coordinator) runLogin(ctx context.Context, form Form, cred Credential, opts LoginOptions, run loginRunner) (Decision, error) {
	ctx = withForm(ctx, form)
	release, err := c.beginSubmission(ctx, string(form))
	if err != nil {
		return c.decision(flows.Decision{Route: flows.RouteStayOnForm}), err
	}
	defer release()

	start := time.Now()
	defer c.observe(start)

	fd, err := run(ctx, cred.Identifier, cred.Password, c.loginDeps(opts))
	d := c.decision(fd)
	c.recordDecision(form, "", d)
	return d, err
}

func (c *Coordinator) loginDeps(opts LoginOptions) flows.LoginDeps {
	deps := flows.LoginDeps{
		AdminRole: c.config.Login.AdminRole,
		Login: func(ctx context.Context, identifier, password string) (flows.AuthReply, error) {
			res, err := c.service.Login(ctx, identifier, password, opts)
			if err != nil {
				return flows.AuthReply{}, err
			}
			return toReply(res), nil
		},
		SaveSession: c.saveSession,
		Hooks:       c.hooks(),
		Metrics: flows.LoginMetrics{
			LoginSuccess:       int(MetricLoginSuccess),
			LoginFailure:       int(MetricLoginFailure),
			LoginRateLimited:   int(MetricLoginRateLimited),
			AdminLoginSuccess:  int(MetricAdminLoginSuccess),
			AdminAccessDenied:  int(MetricAdminAccessDenied),
			AuthServiceFailure: int(MetricAuthServiceFailure),
			SessionSaved:       int(MetricSessionSaved),
			SessionCleared:     int(MetricSessionCleared),
		},
		Events: flows.LoginEvents{
			LoginSuccess:      auditEventLoginSuccess,
			LoginFailure:      auditEventLoginFailure,
			LoginRateLimited:  auditEventLoginRateLimited,
			AdminLoginSuccess: auditEventAdminLoginSuccess,
			AdminLoginFailure: auditEventAdminLoginFailure,
			AdminAccessDenied: auditEventAdminAccessDenied,
		},
		Errors: flows.LoginErrors{
			CoordinatorNotReady:    ErrCoordinatorNotReady,
			InvalidCredentials:     ErrInvalidCredentials,
			LoginRateLimited:       ErrLoginRateLimited,
			AdminAccessDenied:      ErrAdminAccessDenied,
			AuthServiceUnavailable: ErrAuthServiceUnavailable,
		},
		Messages: flows.LoginMessages{
			DefaultFailure:    c.config.Messages.DefaultLoginFailure,
			AdminAccessDenied: c.config.Messages.AdminAccessDenied,
			RateLimited:       c.config.Messages.LoginRateLimited,
			Success:           c.config.Messages.LoginSuccess,
		},
	}

	if c.sessions != nil {
		deps.ClearSession = c.clearSession
	}

	if c.throttle != nil {
		deps.CheckLoginRate = func(ctx context.Context, identifier, ip string) error {
			err := c.throttle.Check(ctx, identifier, ip)
			if errors.Is(err, rate.ErrRateLimited) {
				return ErrLoginRateLimited
			}
			return err
		}
		deps.RecordLoginFailure = c.throttle.RecordFailure
		deps.ResetLoginRate = c.throttle.Reset
	}

	return deps
}
