package authflow

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/session"
	"github.com/MrEthical07/authflow/social"
)

// Route is a navigation target chosen by a flow.
type Route string

const (
	RouteStayOnForm      Route = "stay_on_form"
	RouteAdminDashboard  Route = "admin_dashboard"
	RouteHome            Route = "home"
	RouteCompleteProfile Route = "complete_profile"
)

// Form identifies the submission surface a decision or audit event came from.
type Form string

const (
	FormLogin         Form = "login"
	FormAdminLogin    Form = "admin_login"
	FormSignupDetails Form = "signup_details"
	FormSignupProfile Form = "signup_profile"
	FormSocial        Form = "social"
)

// Severity classifies the feedback attached to a Decision.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "none"
	}
}

// Decision is the outcome of one form submission. Path is empty when the
// browser stays on the form. An empty Message means no feedback is shown.
type Decision struct {
	Route          Route
	Path           string
	Message        string
	Severity       Severity
	ClearedSession bool
}

// Navigates reports whether the decision leaves the form.
func (d Decision) Navigates() bool {
	return d.Route != RouteStayOnForm && d.Route != ""
}

// Credential is a login form submission. Identifier is an email or phone
// and is opaque here.
type Credential struct {
	Identifier string
	Password   string
}

// User is the account returned by the auth service.
type User struct {
	ID              string
	Role            string
	ProfileComplete bool
	Token           string
}

// AuthResult is the auth service's answer to a login, signup or social login.
type AuthResult struct {
	Success bool
	User    *User
	Error   string
}

// LoginOptions are presentational flags forwarded to the auth service. They
// never change the Decision.
type LoginOptions struct {
	SuppressErrorToast   bool
	SuppressSuccessToast bool
}

// Gender is the enumerated signup gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders lists every accepted Gender.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// SignupDetails is the first signup phase. It is validated locally.
type SignupDetails struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SignupProfile is the second signup phase.
type SignupProfile struct {
	DateOfBirth time.Time
	Gender      Gender
}

// SignupPayload is what the auth service receives. DateOfBirth is an
// ISO-8601 UTC timestamp and Phone is normalized.
type SignupPayload struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      Gender `json:"gender"`
}

// AuthService is the upstream authentication service.
type AuthService interface {
	Login(ctx context.Context, identifier, password string, opts LoginOptions) (AuthResult, error)
	Signup(ctx context.Context, payload SignupPayload) (AuthResult, error)
	SocialLogin(ctx context.Context, provider social.Name, token string) (AuthResult, error)
}

// SessionStore keeps the per-client session written on successful login.
// *session.Store satisfies it.
type SessionStore interface {
	Save(ctx context.Context, r *session.Record) error
	Delete(ctx context.Context, clientID string) error
}

// DraftStore keeps in-progress signups between requests. *session.Store
// satisfies it.
type DraftStore interface {
	SaveDraft(ctx context.Context, clientID string, v any, ttl time.Duration) error
	LoadDraft(ctx context.Context, clientID string, v any) error
	DeleteDraft(ctx context.Context, clientID string) error
}

// LateSocialHandler receives the decision for a provider result that arrived
// after the authorize timeout already reset the form.
type LateSocialHandler func(ctx context.Context, provider social.Name, d Decision, err error)

// AuditEvent is the public audit event type.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events.
type AuditSink = internalaudit.Sink

// NoOpSink drops every audit event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
