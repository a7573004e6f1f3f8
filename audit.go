package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authflow/internal/flows"
	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/phone"
	"github.com/MrEthical07/authflow/social"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventAdminLoginSuccess     = "admin_login_success"
	auditEventAdminLoginFailure     = "admin_login_failure"
	auditEventAdminAccessDenied     = "admin_access_denied"
	auditEventSignupDetailsRejected = "signup_details_rejected"
	auditEventSignupProfileRejected = "signup_profile_rejected"
	auditEventSignupSuccess         = "signup_success"
	auditEventSignupFailure         = "signup_failure"
	auditEventSocialLoginSuccess    = "social_login_success"
	auditEventSocialLoginFailure    = "social_login_failure"
	auditEventSocialLoginCancelled  = "social_login_cancelled"
	auditEventSocialLoginTimeout    = "social_login_timeout"
	auditEventSocialLateResult      = "social_login_late_result"
	auditEventSocialConfigError     = "social_login_config_error"
	auditEventSubmissionRejected    = "submission_rejected"
)

// AuditErrorCode is the stable error label written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrAdminDenied        AuditErrorCode = "admin_access_denied"
	auditErrServiceUnavailable AuditErrorCode = "service_unavailable"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPhoneRequired      AuditErrorCode = "phone_required"
	auditErrPhoneInvalid       AuditErrorCode = "phone_invalid"
	auditErrProfileInvalid     AuditErrorCode = "profile_invalid"
	auditErrSignupFailed       AuditErrorCode = "signup_failed"
	auditErrNotConfigured      AuditErrorCode = "provider_not_configured"
	auditErrInsecureContext    AuditErrorCode = "insecure_context"
	auditErrSDKLoadFailed      AuditErrorCode = "sdk_load_failed"
	auditErrCancelled          AuditErrorCode = "cancelled"
	auditErrTimeout            AuditErrorCode = "timeout"
	auditErrProviderError      AuditErrorCode = "provider_error"
	auditErrMissingCredential  AuditErrorCode = "missing_credential"
	auditErrSocialLoginFailed  AuditErrorCode = "social_login_failed"
	auditErrInFlight           AuditErrorCode = "submission_in_flight"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (c *Coordinator) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	route flows.Route,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		Form:      string(formFromContext(ctx)),
		EventType: eventType,
		ClientID:  clientIDFromContext(ctx),
		UserID:    userID,
		Route:     string(route),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if p, ok := metadata["provider"]; ok {
		event.Provider = p
		delete(metadata, "provider")
		if len(metadata) == 0 {
			event.Metadata = nil
		}
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, rate.ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAdminAccessDenied):
		return auditErrAdminDenied
	case errors.Is(err, ErrAuthServiceUnavailable), errors.Is(err, ErrCoordinatorNotReady):
		return auditErrServiceUnavailable
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, password.ErrPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPhoneRequired):
		return auditErrPhoneRequired
	case errors.Is(err, phone.ErrInvalidFormat), errors.Is(err, phone.ErrTooShort):
		return auditErrPhoneInvalid
	case errors.Is(err, ErrInvalidGender), errors.Is(err, ErrUnderage), errors.Is(err, ErrSignupPhase):
		return auditErrProfileInvalid
	case errors.Is(err, ErrSignupFailed):
		return auditErrSignupFailed
	case errors.Is(err, ErrProviderNotConfigured), errors.Is(err, ErrUnknownProvider):
		return auditErrNotConfigured
	case errors.Is(err, ErrInsecureContext):
		return auditErrInsecureContext
	case errors.Is(err, ErrSDKLoadFailed):
		return auditErrSDKLoadFailed
	case social.IsCancellation(err), errors.Is(err, context.Canceled):
		return auditErrCancelled
	case errors.Is(err, ErrSocialTimeout), errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	case errors.Is(err, ErrSocialProviderError):
		return auditErrProviderError
	case errors.Is(err, ErrSocialMissingCredential):
		return auditErrMissingCredential
	case errors.Is(err, ErrSocialLoginFailed):
		return auditErrSocialLoginFailed
	case errors.Is(err, ErrSubmissionInFlight):
		return auditErrInFlight
	default:
		return auditErrInternal
	}
}
