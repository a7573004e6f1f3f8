package flows

import (
	"context"
	"errors"
	"sync"
)

var (
	errNotReady          = errors.New("not ready")
	errInvalidCreds      = errors.New("invalid credentials")
	errRateLimited       = errors.New("rate limited")
	errAdminDenied       = errors.New("admin denied")
	errServiceDown       = errors.New("service unavailable")
	errMismatch          = errors.New("mismatch")
	errPhoneRequired     = errors.New("phone required")
	errGender            = errors.New("gender")
	errDOB               = errors.New("dob")
	errSignupFailed      = errors.New("signup failed")
	errNotConfigured     = errors.New("not configured")
	errInsecure          = errors.New("insecure")
	errSDK               = errors.New("sdk")
	errTimeout           = errors.New("timeout")
	errProvider          = errors.New("provider")
	errSocialFailed      = errors.New("social failed")
	errMissingCredential = errors.New("missing credential")
)

type recorder struct {
	mu      sync.Mutex
	metrics map[int]int
	events  []string
	warns   int
}

func newRecorder() *recorder {
	return &recorder{metrics: map[int]int{}}
}

func (r *recorder) hooks(clientID string) Hooks {
	return Hooks{
		ClientIDFromContext: func(context.Context) string { return clientID },
		MetricInc: func(id int) {
			r.mu.Lock()
			r.metrics[id]++
			r.mu.Unlock()
		},
		EmitAudit: func(_ context.Context, event string, _ bool, _ string, _ Route, _ error, meta func() map[string]string) {
			if meta != nil {
				_ = meta()
			}
			r.mu.Lock()
			r.events = append(r.events, event)
			r.mu.Unlock()
		},
		Warn: func(string, ...any) {
			r.mu.Lock()
			r.warns++
			r.mu.Unlock()
		},
	}
}

func (r *recorder) count(id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics[id]
}

func (r *recorder) lastEvent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}
