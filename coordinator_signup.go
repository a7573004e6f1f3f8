package authflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/authflow/internal/flows"
	"github.com/MrEthical07/authflow/session"
)

// SignupPhase is the step a Signup is on.
type SignupPhase uint8

const (
	SignupPhaseDetails SignupPhase = iota
	SignupPhaseProfile
	SignupPhaseDone
)

func (p SignupPhase) String() string {
	switch p {
	case SignupPhaseDetails:
		return "details"
	case SignupPhaseProfile:
		return "profile"
	case SignupPhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Signup is one two-phase signup. Details are validated locally and kept;
// the profile step merges them into a SignupPayload and calls the service.
//
//	Details --SubmitDetails ok--> Profile --Submit ok--> Done
//	   ^                             |
//	   +------------Back-------------+
type Signup struct {
	c *Coordinator

	mu      sync.Mutex
	phase   SignupPhase
	details SignupDetails
}

// NewSignup starts a signup in the details phase.
func (c *Coordinator) NewSignup() *Signup {
	return &Signup{c: c, phase: SignupPhaseDetails}
}

// Phase returns the current phase.
func (s *Signup) Phase() SignupPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Details returns the accumulated details. After SubmitDetails succeeds the
// phone is normalized.
func (s *Signup) Details() SignupDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}

// SubmitDetails validates the first phase and advances to the profile phase.
// No network call is made. On failure the phase does not change and the
// decision carries the first failing check's message.
func (s *Signup) SubmitDetails(ctx context.Context, in SignupDetails) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != SignupPhaseDetails {
		return s.c.decision(flows.Decision{Route: flows.RouteStayOnForm}), ErrSignupPhase
	}

	ctx = withForm(ctx, FormSignupDetails)
	out, fd, err := flows.RunSignupDetails(ctx, flows.SignupDetails(in), s.c.signupDeps())
	s.details = SignupDetails(out)
	d := s.c.decision(fd)
	s.c.recordDecision(FormSignupDetails, "", d)
	if err != nil {
		return d, err
	}

	s.phase = SignupPhaseProfile
	return d, nil
}

// Back returns from the profile phase to the details phase, keeping the
// accumulated details.
func (s *Signup) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != SignupPhaseProfile {
		return ErrSignupPhase
	}
	s.phase = SignupPhaseDetails
	return nil
}

// Submit completes the signup. Success always routes to profile completion.
// On failure the signup stays in the profile phase with no message; the
// auth service owns failure messaging.
func (s *Signup) Submit(ctx context.Context, p SignupProfile) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != SignupPhaseProfile {
		return s.c.decision(flows.Decision{Route: flows.RouteStayOnForm}), ErrSignupPhase
	}

	ctx = withForm(ctx, FormSignupProfile)
	release, err := s.c.beginSubmission(ctx, string(FormSignupProfile))
	if err != nil {
		return s.c.decision(flows.Decision{Route: flows.RouteStayOnForm}), err
	}
	defer release()

	start := time.Now()
	defer s.c.observe(start)

	fd, err := flows.RunSignupSubmit(ctx, flows.SignupDetails(s.details), p.DateOfBirth, string(p.Gender), s.c.signupDeps())
	d := s.c.decision(fd)
	s.c.recordDecision(FormSignupProfile, "", d)
	if err != nil {
		return d, err
	}

	s.phase = SignupPhaseDone
	return d, nil
}

// DateOfBirthBounds returns the inclusive range of birth dates the profile
// phase accepts at now, for rendering the date input.
func (c *Coordinator) DateOfBirthBounds(now time.Time) (earliest, latest time.Time) {
	return flows.DateOfBirthBounds(now, c.config.Signup.MinimumAge, c.config.Signup.MaximumAge)
}

func (c *Coordinator) signupDeps() flows.SignupDeps {
	genders := make([]string, len(Genders))
	for i, g := range Genders {
		genders[i] = string(g)
	}

	return flows.SignupDeps{
		Now:        c.now,
		MinimumAge: c.config.Signup.MinimumAge,
		MaximumAge: c.config.Signup.MaximumAge,
		Genders:    genders,
		Signup: func(ctx context.Context, req flows.SignupRequest) (flows.AuthReply, error) {
			res, err := c.service.Signup(ctx, SignupPayload{
				Name:        req.Name,
				Email:       req.Email,
				Phone:       req.Phone,
				Password:    req.Password,
				DateOfBirth: req.DateOfBirth,
				Gender:      Gender(req.Gender),
			})
			if err != nil {
				return flows.AuthReply{}, err
			}
			return toReply(res), nil
		},
		SaveSession: c.saveSession,
		Hooks:       c.hooks(),
		Metrics: flows.SignupMetrics{
			DetailsRejected:    int(MetricSignupDetailsRejected),
			DetailsAccepted:    int(MetricSignupDetailsAccepted),
			ProfileRejected:    int(MetricSignupProfileRejected),
			SignupSuccess:      int(MetricSignupSuccess),
			SignupFailure:      int(MetricSignupFailure),
			AuthServiceFailure: int(MetricAuthServiceFailure),
			SessionSaved:       int(MetricSessionSaved),
		},
		Events: flows.SignupEvents{
			DetailsRejected: auditEventSignupDetailsRejected,
			ProfileRejected: auditEventSignupProfileRejected,
			SignupSuccess:   auditEventSignupSuccess,
			SignupFailure:   auditEventSignupFailure,
		},
		Errors: flows.SignupErrors{
			CoordinatorNotReady:    ErrCoordinatorNotReady,
			PasswordMismatch:       ErrPasswordMismatch,
			PhoneRequired:          ErrPhoneRequired,
			InvalidGender:          ErrInvalidGender,
			DateOfBirthOutOfRange:  ErrUnderage,
			SignupFailed:           ErrSignupFailed,
			AuthServiceUnavailable: ErrAuthServiceUnavailable,
		},
		Messages: flows.SignupMessages{
			PasswordMismatch:      c.config.Messages.PasswordMismatch,
			PhoneRequired:         c.config.Messages.PhoneRequired,
			InvalidGender:         c.config.Messages.InvalidGender,
			DateOfBirthOutOfRange: c.config.Messages.DateOfBirthOutOfRange,
			Success:               c.config.Messages.SignupSuccess,
		},
	}
}

/*
====================================
DRAFTS
====================================
*/

// signupDraft is the persisted form of a Signup. The password is only kept
// once the details were accepted, and then only sealed to the client id.
// The confirmation password is never stored.
type signupDraft struct {
	Phase          SignupPhase `json:"phase"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	SealedPassword string      `json:"sealed_password,omitempty"`
}

// SaveSignup persists s for the client in ctx until Signup.DraftTTL elapses.
// Completed signups delete the draft instead.
func (c *Coordinator) SaveSignup(ctx context.Context, s *Signup) error {
	if c.drafts == nil || c.sealer == nil {
		return ErrCoordinatorNotReady
	}
	clientID := clientIDFromContext(ctx)
	if clientID == "" {
		return errNoClientID
	}

	s.mu.Lock()
	phase, details := s.phase, s.details
	s.mu.Unlock()

	if phase == SignupPhaseDone {
		return c.drafts.DeleteDraft(ctx, clientID)
	}

	draft := signupDraft{
		Phase: phase,
		Name:  details.Name,
		Email: details.Email,
		Phone: details.Phone,
	}
	if phase == SignupPhaseProfile {
		sealed, err := c.sealer.seal(clientID, details.Password)
		if err != nil {
			return err
		}
		draft.SealedPassword = sealed
	}
	return c.drafts.SaveDraft(ctx, clientID, draft, c.config.Signup.DraftTTL)
}

// ResumeSignup restores the client's saved signup, or starts a new one when
// none is stored. A profile-phase draft whose password no longer opens
// resumes on the details phase so the user re-enters it.
func (c *Coordinator) ResumeSignup(ctx context.Context) (*Signup, error) {
	s := c.NewSignup()
	if c.drafts == nil || c.sealer == nil {
		return s, nil
	}
	clientID := clientIDFromContext(ctx)
	if clientID == "" {
		return s, nil
	}

	var draft signupDraft
	if err := c.drafts.LoadDraft(ctx, clientID, &draft); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return s, nil
		}
		return nil, err
	}

	s.details = SignupDetails{
		Name:  draft.Name,
		Email: draft.Email,
		Phone: draft.Phone,
	}
	if draft.Phase != SignupPhaseProfile {
		return s, nil
	}

	pw, err := c.sealer.open(clientID, draft.SealedPassword)
	if err != nil || pw == "" {
		warnf("signup draft for client could not be unsealed, resuming on details")
		return s, nil
	}
	s.phase = SignupPhaseProfile
	s.details.Password = pw
	s.details.ConfirmPassword = pw
	return s, nil
}

// DiscardSignup deletes the client's saved signup.
func (c *Coordinator) DiscardSignup(ctx context.Context) error {
	if c.drafts == nil {
		return nil
	}
	clientID := clientIDFromContext(ctx)
	if clientID == "" {
		return nil
	}
	return c.drafts.DeleteDraft(ctx, clientID)
}
