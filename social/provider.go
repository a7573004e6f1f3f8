package social

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/authflow/internal/settle"
)

// Name identifies a provider.
type Name string

const (
	Google   Name = "google"
	Facebook Name = "facebook"
)

// Title returns the display name used in user-facing messages.
func (n Name) Title() string {
	switch n {
	case Google:
		return "Google"
	case Facebook:
		return "Facebook"
	default:
		if n == "" {
			return ""
		}
		return strings.ToUpper(string(n[:1])) + string(n[1:])
	}
}

// ParseName maps a lower-case provider name to a Name.
func ParseName(s string) (Name, bool) {
	switch Name(strings.ToLower(strings.TrimSpace(s))) {
	case Google:
		return Google, true
	case Facebook:
		return Facebook, true
	default:
		return "", false
	}
}

var (
	// ErrCancelled signals the user closed the provider dialog.
	ErrCancelled = errors.New("social: cancelled by user")
	// ErrPopupBlocked signals the browser blocked the provider popup.
	ErrPopupBlocked = errors.New("social: popup blocked")
	// ErrAccessDenied signals the user declined the requested permissions.
	ErrAccessDenied = errors.New("social: access denied")
)

// ProviderError is an explicit provider failure that is not a cancellation.
type ProviderError struct {
	Provider Name
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("social: %s error %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("social: %s error %s", e.Provider, e.Code)
}

// IsCancellation reports whether err is a cancellation-class signal
// (cancelled, popup blocked, access denied). Those are never shown as errors.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrPopupBlocked) ||
		errors.Is(err, ErrAccessDenied)
}

// Result is delivered to the completion callback. Exactly one of Token and
// Err is meaningful; both empty means the provider returned no credential.
type Result struct {
	Token string
	Err   error
}

// Provider is an identity-provider SDK handle.
//
// Authorize starts the provider's authorization and returns once it has been
// initiated; complete is invoked later, possibly never, possibly more than
// once. The caller is responsible for deduplication and deadlines.
type Provider interface {
	Name() Name
	IsReady() bool
	AwaitReady(ctx context.Context, timeout time.Duration) error
	Authorize(ctx context.Context, complete func(Result)) error
}

// SDK adapts a callback-style SDK handle to Provider.
type SDK struct {
	ProviderName Name
	PollInterval time.Duration

	// Loaded reports whether the SDK script has finished initializing.
	Loaded func() bool
	// Login initiates authorization and eventually calls complete.
	Login func(ctx context.Context, complete func(Result)) error
}

var _ Provider = (*SDK)(nil)

func (s *SDK) Name() Name { return s.ProviderName }

func (s *SDK) IsReady() bool {
	return s != nil && s.Loaded != nil && s.Loaded()
}

// AwaitReady polls IsReady every PollInterval until it succeeds or timeout
// elapses.
func (s *SDK) AwaitReady(ctx context.Context, timeout time.Duration) error {
	return settle.Poll(ctx, s.PollInterval, timeout, s.IsReady)
}

func (s *SDK) Authorize(ctx context.Context, complete func(Result)) error {
	if s.Login == nil {
		return fmt.Errorf("social: %s sdk has no login handle", s.ProviderName)
	}
	return s.Login(ctx, complete)
}

// TokenProvider is always ready and completes with a credential obtained
// elsewhere, typically posted by the browser after its own popup flow.
type TokenProvider struct {
	ProviderName Name
	Token        string
}

var _ Provider = TokenProvider{}

func (p TokenProvider) Name() Name { return p.ProviderName }

func (p TokenProvider) IsReady() bool { return true }

func (p TokenProvider) AwaitReady(context.Context, time.Duration) error { return nil }

func (p TokenProvider) Authorize(_ context.Context, complete func(Result)) error {
	complete(Result{Token: p.Token})
	return nil
}

// IsSecureOrigin reports whether origin is a secure context: https, or a
// loopback host over any scheme.
func IsSecureOrigin(origin string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Scheme, "https") {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
