package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/phone"
)

// DateOfBirthLayout is the wire format of SignupRequest.DateOfBirth.
const DateOfBirthLayout = "2006-01-02T15:04:05.000Z"

// SignupDetails is the flow-local phase-one form.
type SignupDetails struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// SignupRequest is the payload sent to the auth service. It never carries
// the confirmation password.
type SignupRequest struct {
	Name        string
	Email       string
	Phone       string
	Password    string
	DateOfBirth string
	Gender      string
}

// SignupMetrics carries metric IDs needed by the signup flows.
type SignupMetrics struct {
	DetailsRejected    int
	DetailsAccepted    int
	ProfileRejected    int
	SignupSuccess      int
	SignupFailure      int
	AuthServiceFailure int
	SessionSaved       int
}

// SignupEvents carries audit event names used by the signup flows.
type SignupEvents struct {
	DetailsRejected string
	ProfileRejected string
	SignupSuccess   string
	SignupFailure   string
}

// SignupErrors carries host-level sentinel errors used by the signup flows.
type SignupErrors struct {
	CoordinatorNotReady    error
	PasswordMismatch       error
	PhoneRequired          error
	InvalidGender          error
	DateOfBirthOutOfRange  error
	SignupFailed           error
	AuthServiceUnavailable error
}

// SignupMessages carries the user-facing copy for the signup flows.
type SignupMessages struct {
	PasswordMismatch      string
	PhoneRequired         string
	InvalidGender         string
	DateOfBirthOutOfRange string
	Success               string
}

// SignupDeps captures signup dependencies.
type SignupDeps struct {
	Now         func() time.Time
	MinimumAge  int
	MaximumAge  int
	Genders     []string
	Signup      func(ctx context.Context, req SignupRequest) (AuthReply, error)
	SaveSession func(ctx context.Context, clientID string, reply AuthReply) error

	Hooks
	Metrics  SignupMetrics
	Events   SignupEvents
	Errors   SignupErrors
	Messages SignupMessages
}

// RunSignupDetails validates the phase-one form without any network call.
// Checks run in a fixed order and the first failure wins: passwords match,
// password strength, phone present, phone format. On success the returned
// details carry the normalized phone.
func RunSignupDetails(ctx context.Context, in SignupDetails, deps SignupDeps) (SignupDetails, Decision, error) {
	deps.Hooks = normalizeHooks(deps.Hooks)

	reject := func(message string, err error) (SignupDetails, Decision, error) {
		deps.MetricInc(deps.Metrics.DetailsRejected)
		deps.EmitAudit(ctx, deps.Events.DetailsRejected, false, "", RouteStayOnForm, err, nil)
		return in, stay(message), err
	}

	if in.Password != in.ConfirmPassword {
		return reject(deps.Messages.PasswordMismatch, deps.Errors.PasswordMismatch)
	}
	if err := password.CheckStrength(in.Password); err != nil {
		return reject(password.Message(err), err)
	}
	if in.Phone == "" {
		return reject(deps.Messages.PhoneRequired, deps.Errors.PhoneRequired)
	}
	if err := phone.Check(in.Phone); err != nil {
		return reject(err.Error(), err)
	}

	out := in
	out.Phone = phone.Normalize(in.Phone)
	deps.MetricInc(deps.Metrics.DetailsAccepted)

	return out, Decision{Route: RouteStayOnForm}, nil
}

// DateOfBirthBounds returns the inclusive range of acceptable birth dates,
// at day precision in UTC.
func DateOfBirthBounds(now time.Time, minimumAge, maximumAge int) (earliest, latest time.Time) {
	y, m, d := now.UTC().Date()
	latest = time.Date(y-minimumAge, m, d, 0, 0, 0, 0, time.UTC)
	earliest = time.Date(y-maximumAge, m, d, 0, 0, 0, 0, time.UTC)
	return earliest, latest
}

// RunSignupSubmit validates the phase-two profile, merges it with the
// phase-one details and calls the auth service. Success always routes to
// profile completion. Failure keeps the form open and leaves messaging to
// the service.
func RunSignupSubmit(ctx context.Context, details SignupDetails, dob time.Time, gender string, deps SignupDeps) (Decision, error) {
	deps.Hooks = normalizeHooks(deps.Hooks)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Signup == nil {
		return stay(""), deps.Errors.CoordinatorNotReady
	}

	reject := func(message string, err error) (Decision, error) {
		deps.MetricInc(deps.Metrics.ProfileRejected)
		deps.EmitAudit(ctx, deps.Events.ProfileRejected, false, "", RouteStayOnForm, err, nil)
		return stay(message), err
	}

	if !containsString(deps.Genders, gender) {
		return reject(deps.Messages.InvalidGender, deps.Errors.InvalidGender)
	}

	earliest, latest := DateOfBirthBounds(deps.Now(), deps.MinimumAge, deps.MaximumAge)
	y, m, d := dob.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if dob.IsZero() || day.Before(earliest) || day.After(latest) {
		return reject(deps.Messages.DateOfBirthOutOfRange, deps.Errors.DateOfBirthOutOfRange)
	}

	req := SignupRequest{
		Name:        details.Name,
		Email:       details.Email,
		Phone:       details.Phone,
		Password:    details.Password,
		DateOfBirth: dob.UTC().Format(DateOfBirthLayout),
		Gender:      gender,
	}

	reply, err := deps.Signup(ctx, req)
	if err != nil {
		deps.MetricInc(deps.Metrics.AuthServiceFailure)
		deps.MetricInc(deps.Metrics.SignupFailure)
		err = wrap(deps.Errors.AuthServiceUnavailable, err)
		deps.EmitAudit(ctx, deps.Events.SignupFailure, false, "", RouteStayOnForm, err, nil)
		return stay(""), err
	}
	if !reply.Success {
		deps.MetricInc(deps.Metrics.SignupFailure)
		deps.EmitAudit(ctx, deps.Events.SignupFailure, false, "", RouteStayOnForm, deps.Errors.SignupFailed, nil)
		return stay(""), deps.Errors.SignupFailed
	}

	clientID := deps.ClientIDFromContext(ctx)
	if deps.SaveSession != nil && clientID != "" && reply.UserID != "" {
		if serr := deps.SaveSession(ctx, clientID, reply); serr != nil {
			deps.Warn("save session after signup failed: %v", serr)
		} else {
			deps.MetricInc(deps.Metrics.SessionSaved)
		}
	}

	deps.MetricInc(deps.Metrics.SignupSuccess)
	deps.EmitAudit(ctx, deps.Events.SignupSuccess, true, reply.UserID, RouteCompleteProfile, nil, nil)

	return Decision{Route: RouteCompleteProfile, Message: deps.Messages.Success, Severity: SeveritySuccess}, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
