package authflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/phone"
)

var signupNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func validDetails() SignupDetails {
	return SignupDetails{
		Name:            "Ada",
		Email:           "ada@example.com",
		Phone:           "+1 (234) 567-8901",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
	}
}

func newSignupCoordinator(t *testing.T, svc *fakeAuthService) *Coordinator {
	t.Helper()

	c, _ := newTestCoordinator(t, testConfig(), svc)
	c.now = func() time.Time { return signupNow }
	return c
}

func TestSignupDetailsCheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SignupDetails)
		wantErr error
		wantMsg string
	}{
		{
			name: "mismatch beats weak password",
			mutate: func(d *SignupDetails) {
				d.Password = "short"
				d.ConfirmPassword = "other"
			},
			wantErr: ErrPasswordMismatch,
			wantMsg: "Passwords do not match",
		},
		{
			name: "weak password beats missing phone",
			mutate: func(d *SignupDetails) {
				d.Password, d.ConfirmPassword = "alllowercase1", "alllowercase1"
				d.Phone = ""
			},
			wantErr: password.ErrMissingUppercase,
			wantMsg: password.Message(password.ErrMissingUppercase),
		},
		{
			name:    "missing phone",
			mutate:  func(d *SignupDetails) { d.Phone = "" },
			wantErr: ErrPhoneRequired,
			wantMsg: "Phone number is required",
		},
		{
			name:    "bad phone format",
			mutate:  func(d *SignupDetails) { d.Phone = "12345" },
			wantErr: phone.ErrInvalidFormat,
			wantMsg: phone.MessageFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{}
			c := newSignupCoordinator(t, svc)
			s := c.NewSignup()

			in := validDetails()
			tt.mutate(&in)
			d, err := s.SubmitDetails(context.Background(), in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if d.Route != RouteStayOnForm || d.Message != tt.wantMsg {
				t.Fatalf("unexpected decision %+v", d)
			}
			if s.Phase() != SignupPhaseDetails {
				t.Fatalf("phase advanced to %s", s.Phase())
			}
			if _, signup, _ := svc.calls(); signup != 0 {
				t.Fatal("details phase must not call the service")
			}
		})
	}
}

func TestSignupFullFlow(t *testing.T) {
	svc := &fakeAuthService{signupResult: success("u9", "member", false)}
	c := newSignupCoordinator(t, svc)
	s := c.NewSignup()
	ctx := clientCtx("c1")

	if _, err := s.SubmitDetails(ctx, validDetails()); err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	if s.Phase() != SignupPhaseProfile {
		t.Fatalf("expected profile phase, got %s", s.Phase())
	}
	if got := s.Details().Phone; got != "+12345678901" {
		t.Fatalf("expected normalized phone, got %q", got)
	}

	est := time.FixedZone("EST", -5*3600)
	dob := time.Date(1990, time.June, 1, 22, 30, 0, 0, est)
	d, err := s.Submit(ctx, SignupProfile{DateOfBirth: dob, Gender: GenderFemale})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if d.Route != RouteCompleteProfile || d.Path != "/complete-profile" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if s.Phase() != SignupPhaseDone {
		t.Fatalf("expected done phase, got %s", s.Phase())
	}

	want := SignupPayload{
		Name:        "Ada",
		Email:       "ada@example.com",
		Phone:       "+12345678901",
		Password:    "Secret123",
		DateOfBirth: "1990-06-02T03:30:00.000Z",
		Gender:      GenderFemale,
	}
	if svc.lastPayload != want {
		t.Fatalf("payload mismatch:\n got %+v\nwant %+v", svc.lastPayload, want)
	}
}

func TestSignupProfileCompleteStillRoutesToCompleteProfile(t *testing.T) {
	svc := &fakeAuthService{signupResult: success("u9", "member", true)}
	c := newSignupCoordinator(t, svc)
	s := c.NewSignup()

	_, _ = s.SubmitDetails(context.Background(), validDetails())
	d, err := s.Submit(context.Background(), SignupProfile{DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), Gender: GenderMale})
	if err != nil || d.Route != RouteCompleteProfile {
		t.Fatalf("unexpected %+v, %v", d, err)
	}
}

func TestSignupPhaseGuards(t *testing.T) {
	c := newSignupCoordinator(t, &fakeAuthService{})
	s := c.NewSignup()

	if _, err := s.Submit(context.Background(), SignupProfile{}); !errors.Is(err, ErrSignupPhase) {
		t.Fatalf("Submit in details phase: got %v", err)
	}
	if err := s.Back(); !errors.Is(err, ErrSignupPhase) {
		t.Fatalf("Back in details phase: got %v", err)
	}

	_, _ = s.SubmitDetails(context.Background(), validDetails())
	if _, err := s.SubmitDetails(context.Background(), validDetails()); !errors.Is(err, ErrSignupPhase) {
		t.Fatalf("SubmitDetails in profile phase: got %v", err)
	}
}

func TestSignupBackKeepsDetails(t *testing.T) {
	c := newSignupCoordinator(t, &fakeAuthService{})
	s := c.NewSignup()

	_, _ = s.SubmitDetails(context.Background(), validDetails())
	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if s.Phase() != SignupPhaseDetails {
		t.Fatalf("expected details phase, got %s", s.Phase())
	}
	if got := s.Details(); got.Name != "Ada" || got.Phone != "+12345678901" {
		t.Fatalf("details lost: %+v", got)
	}
}

func TestSignupProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		profile SignupProfile
		wantErr error
	}{
		{"unknown gender", SignupProfile{DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), Gender: "robot"}, ErrInvalidGender},
		{"underage", SignupProfile{DateOfBirth: time.Date(2008, time.March, 16, 0, 0, 0, 0, time.UTC), Gender: GenderOther}, ErrUnderage},
		{"missing date", SignupProfile{Gender: GenderOther}, ErrUnderage},
		{"too old", SignupProfile{DateOfBirth: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), Gender: GenderOther}, ErrUnderage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{signupResult: success("u1", "member", false)}
			c := newSignupCoordinator(t, svc)
			s := c.NewSignup()
			_, _ = s.SubmitDetails(context.Background(), validDetails())

			d, err := s.Submit(context.Background(), tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if d.Route != RouteStayOnForm || d.Message == "" {
				t.Fatalf("expected message on form, got %+v", d)
			}
			if s.Phase() != SignupPhaseProfile {
				t.Fatalf("phase changed to %s", s.Phase())
			}
			if _, signup, _ := svc.calls(); signup != 0 {
				t.Fatal("service must not be called")
			}
		})
	}
}

func TestSignupEighteenthBirthdayAccepted(t *testing.T) {
	svc := &fakeAuthService{signupResult: success("u1", "member", false)}
	c := newSignupCoordinator(t, svc)
	s := c.NewSignup()
	_, _ = s.SubmitDetails(context.Background(), validDetails())

	_, latest := c.DateOfBirthBounds(signupNow)
	if _, err := s.Submit(context.Background(), SignupProfile{DateOfBirth: latest, Gender: GenderMale}); err != nil {
		t.Fatalf("Submit on boundary: %v", err)
	}
}

func TestSignupServiceFailureIsSilent(t *testing.T) {
	tests := []struct {
		name    string
		result  AuthResult
		err     error
		wantErr error
	}{
		{"rejected", AuthResult{Error: "email taken"}, nil, ErrSignupFailed},
		{"transport", AuthResult{}, errors.New("timeout"), ErrAuthServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{signupResult: tt.result, signupErr: tt.err}
			c := newSignupCoordinator(t, svc)
			s := c.NewSignup()
			_, _ = s.SubmitDetails(context.Background(), validDetails())

			d, err := s.Submit(context.Background(), SignupProfile{DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), Gender: GenderMale})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if d.Route != RouteStayOnForm || d.Message != "" || d.Severity != SeverityNone {
				t.Fatalf("expected silent stay, got %+v", d)
			}
			if s.Phase() != SignupPhaseProfile {
				t.Fatalf("phase changed to %s", s.Phase())
			}
		})
	}
}

func TestSignupDraftRoundTrip(t *testing.T) {
	svc := &fakeAuthService{signupResult: success("u1", "member", false)}
	c := newSignupCoordinator(t, svc)
	ctx := clientCtx("c1")

	s := c.NewSignup()
	_, _ = s.SubmitDetails(ctx, validDetails())
	if err := c.SaveSignup(ctx, s); err != nil {
		t.Fatalf("SaveSignup: %v", err)
	}

	resumed, err := c.ResumeSignup(ctx)
	if err != nil {
		t.Fatalf("ResumeSignup: %v", err)
	}
	if resumed.Phase() != SignupPhaseProfile {
		t.Fatalf("expected profile phase, got %s", resumed.Phase())
	}
	got := resumed.Details()
	if got.Phone != "+12345678901" || got.Password != "Secret123" || got.ConfirmPassword != "Secret123" {
		t.Fatalf("unexpected details %+v", got)
	}

	if _, err := resumed.Submit(ctx, SignupProfile{DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), Gender: GenderMale}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.SaveSignup(ctx, resumed); err != nil {
		t.Fatalf("SaveSignup done: %v", err)
	}

	fresh, err := c.ResumeSignup(ctx)
	if err != nil {
		t.Fatalf("ResumeSignup after done: %v", err)
	}
	if fresh.Phase() != SignupPhaseDetails || fresh.Details().Name != "" {
		t.Fatalf("expected fresh signup, got %s %+v", fresh.Phase(), fresh.Details())
	}
}

func TestSignupDraftNeverStoresPlaintextPassword(t *testing.T) {
	svc := &fakeAuthService{}
	c, rdb := newTestCoordinator(t, testConfig(), svc)
	c.now = func() time.Time { return signupNow }
	ctx := clientCtx("c1")

	s := c.NewSignup()
	if _, err := s.SubmitDetails(ctx, validDetails()); err != nil {
		t.Fatalf("SubmitDetails: %v", err)
	}
	if err := c.SaveSignup(ctx, s); err != nil {
		t.Fatalf("SaveSignup: %v", err)
	}

	raw, err := rdb.Get(context.Background(), "af:draft:c1").Result()
	if err != nil {
		t.Fatalf("read draft key: %v", err)
	}
	if strings.Contains(raw, "Secret123") {
		t.Fatalf("draft holds the plaintext password: %s", raw)
	}
	if strings.Contains(raw, `"password"`) || strings.Contains(raw, "confirm") {
		t.Fatalf("draft has a password field: %s", raw)
	}
	if !strings.Contains(raw, `"sealed_password"`) {
		t.Fatalf("profile-phase draft should carry a sealed password: %s", raw)
	}
}

func TestSignupDraftSealIsBoundToClient(t *testing.T) {
	c, rdb := newTestCoordinator(t, testConfig(), &fakeAuthService{})
	c.now = func() time.Time { return signupNow }

	s := c.NewSignup()
	_, _ = s.SubmitDetails(clientCtx("c1"), validDetails())
	if err := c.SaveSignup(clientCtx("c1"), s); err != nil {
		t.Fatalf("SaveSignup: %v", err)
	}

	raw, err := rdb.Get(context.Background(), "af:draft:c1").Result()
	if err != nil {
		t.Fatalf("read draft key: %v", err)
	}
	if err := rdb.Set(context.Background(), "af:draft:c2", raw, time.Minute).Err(); err != nil {
		t.Fatalf("copy draft: %v", err)
	}

	stolen, err := c.ResumeSignup(clientCtx("c2"))
	if err != nil {
		t.Fatalf("ResumeSignup: %v", err)
	}
	if stolen.Phase() != SignupPhaseDetails || stolen.Details().Password != "" {
		t.Fatalf("copied draft must not unseal, got %s %+v", stolen.Phase(), stolen.Details())
	}
	if stolen.Details().Email != "ada@example.com" {
		t.Fatalf("non-secret fields should still resume, got %+v", stolen.Details())
	}
}

func TestSignupDraftSharedKeyAcrossCoordinators(t *testing.T) {
	cfg := testConfig()
	cfg.Signup.DraftKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	_, rdb := newTestRedis(t)
	build := func() *Coordinator {
		c, err := New().WithConfig(cfg).WithAuthService(&fakeAuthService{}).WithRedis(rdb).Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		t.Cleanup(c.Close)
		c.now = func() time.Time { return signupNow }
		return c
	}
	first, second := build(), build()
	ctx := clientCtx("c1")

	s := first.NewSignup()
	_, _ = s.SubmitDetails(ctx, validDetails())
	if err := first.SaveSignup(ctx, s); err != nil {
		t.Fatalf("SaveSignup: %v", err)
	}

	resumed, err := second.ResumeSignup(ctx)
	if err != nil {
		t.Fatalf("ResumeSignup: %v", err)
	}
	if resumed.Phase() != SignupPhaseProfile || resumed.Details().Password != "Secret123" {
		t.Fatalf("shared key should resume on profile, got %s %+v", resumed.Phase(), resumed.Details())
	}
}

func TestSignupDraftDetailsPhaseDropsPassword(t *testing.T) {
	c := newSignupCoordinator(t, &fakeAuthService{})
	ctx := clientCtx("c1")

	s := c.NewSignup()
	in := validDetails()
	in.ConfirmPassword = "different"
	_, _ = s.SubmitDetails(ctx, in)
	if err := c.SaveSignup(ctx, s); err != nil {
		t.Fatalf("SaveSignup: %v", err)
	}

	resumed, err := c.ResumeSignup(ctx)
	if err != nil {
		t.Fatalf("ResumeSignup: %v", err)
	}
	if resumed.Phase() != SignupPhaseDetails || resumed.Details().Password != "" || resumed.Details().Name != "Ada" {
		t.Fatalf("unexpected resume %s %+v", resumed.Phase(), resumed.Details())
	}

	if err := c.DiscardSignup(ctx); err != nil {
		t.Fatalf("DiscardSignup: %v", err)
	}
	again, _ := c.ResumeSignup(ctx)
	if again.Details().Name != "" {
		t.Fatal("expected draft discarded")
	}
}

func TestSignupDraftRequiresClientID(t *testing.T) {
	c := newSignupCoordinator(t, &fakeAuthService{})
	if err := c.SaveSignup(context.Background(), c.NewSignup()); !errors.Is(err, errNoClientID) {
		t.Fatalf("expected errNoClientID, got %v", err)
	}
}
