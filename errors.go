package authflow

import "errors"

var (
	// ErrCoordinatorNotReady is returned when a required collaborator is missing.
	ErrCoordinatorNotReady = errors.New("coordinator not ready")
	// ErrSubmissionInFlight is returned when the same client submits a form
	// that is still being processed.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	// ErrInvalidCredentials is returned when the auth service rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned when the login throttle is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrAdminAccessDenied is returned when a non-admin signs in through the
	// admin form.
	ErrAdminAccessDenied = errors.New("admin access denied")
	// ErrAuthServiceUnavailable wraps transport failures talking to the auth service.
	ErrAuthServiceUnavailable = errors.New("auth service unavailable")

	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPhoneRequired is returned when the signup phone is empty.
	ErrPhoneRequired = errors.New("phone number required")
	// ErrInvalidGender is returned for a gender outside the enumerated set.
	ErrInvalidGender = errors.New("invalid gender")
	// ErrUnderage is returned when the date of birth is outside the allowed range.
	ErrUnderage = errors.New("date of birth out of range")
	// ErrSignupPhase is returned when a signup step is called in the wrong phase.
	ErrSignupPhase = errors.New("signup step not allowed in current phase")
	// ErrSignupFailed is returned when the auth service rejects a signup.
	ErrSignupFailed = errors.New("signup failed")

	// ErrProviderNotConfigured is returned when a social provider has no
	// client or app id.
	ErrProviderNotConfigured = errors.New("social provider not configured")
	// ErrInsecureContext is returned when a provider requires HTTPS.
	ErrInsecureContext = errors.New("social provider requires a secure context")
	// ErrSDKLoadFailed is returned when the provider SDK never became ready.
	ErrSDKLoadFailed = errors.New("social provider sdk failed to load")
	// ErrSocialTimeout is returned when the provider did not complete in time.
	// It is never shown to the user.
	ErrSocialTimeout = errors.New("social authorization timed out")
	// ErrSocialProviderError wraps an explicit provider failure.
	ErrSocialProviderError = errors.New("social provider error")
	// ErrSocialMissingCredential is returned when the provider completed
	// without a token or an error.
	ErrSocialMissingCredential = errors.New("social provider returned no credential")
	// ErrSocialLoginFailed is returned when the auth service rejects a
	// provider token.
	ErrSocialLoginFailed = errors.New("social login failed")
	// ErrUnknownProvider is returned for a provider name authflow does not know.
	ErrUnknownProvider = errors.New("unknown social provider")

	errNoClientID = errors.New("no client id in context")
)
