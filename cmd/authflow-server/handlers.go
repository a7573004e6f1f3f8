package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/middleware"
	"github.com/MrEthical07/authflow/social"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type server struct {
	coord   *authflow.Coordinator
	guards  middleware.Config
	metrics http.Handler
}

type metricsHandler interface {
	Handler() http.Handler
}

func newServer(c *authflow.Coordinator, guards middleware.Config, m metricsHandler) *server {
	s := &server{coord: c, guards: guards}
	if m != nil {
		s.metrics = m.Handler()
	}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin(false))
	mux.HandleFunc("POST /api/admin/login", s.handleLogin(true))
	mux.HandleFunc("POST /api/signup/details", s.handleSignupDetails)
	mux.HandleFunc("POST /api/signup/back", s.handleSignupBack)
	mux.HandleFunc("POST /api/signup/complete", s.handleSignupComplete)
	mux.HandleFunc("GET /api/signup/bounds", s.handleSignupBounds)
	mux.HandleFunc("POST /api/social/{provider}", s.handleSocial)

	routes := s.coord.Config().Routes
	mux.Handle("GET "+routes.Home, middleware.RequireProfileComplete(s.guards)(http.HandlerFunc(s.handlePage)))
	mux.Handle("GET "+routes.AdminDashboard, middleware.RequireAdmin(s.guards)(http.HandlerFunc(s.handlePage)))
	mux.Handle("GET "+routes.CompleteProfile, middleware.RequireSession(s.guards)(http.HandlerFunc(s.handlePage)))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.withClient(mux)
}

// withClient gives every browser a client id cookie and carries it, the
// remote IP and the page origin into the request context.
func (s *server) withClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := middleware.ClientID(r, s.guards)
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName(s.guards),
				Value:    clientID,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			r.AddCookie(&http.Cookie{Name: cookieName(s.guards), Value: clientID})
		}

		ctx := authflow.WithClientID(r.Context(), clientID)

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ctx = authflow.WithClientIP(ctx, host)

		if origin := r.Header.Get("Origin"); origin != "" {
			ctx = authflow.WithOrigin(ctx, origin)
		} else {
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			ctx = authflow.WithOrigin(ctx, scheme+"://"+r.Host)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func cookieName(cfg middleware.Config) string {
	if cfg.ClientIDCookie != "" {
		return cfg.ClientIDCookie
	}
	return middleware.DefaultClientIDCookie
}

/*
====================================
FORMS
====================================
*/

type decisionResponse struct {
	Route          authflow.Route `json:"route"`
	Path           string         `json:"path,omitempty"`
	Message        string         `json:"message,omitempty"`
	Severity       string         `json:"severity"`
	ClearedSession bool           `json:"cleared_session,omitempty"`
	Phase          string         `json:"phase,omitempty"`
}

func (s *server) handleLogin(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		if !decode(w, r, &body) {
			return
		}

		cred := authflow.Credential{Identifier: body.Identifier, Password: body.Password}
		run := s.coord.Login
		if admin {
			run = s.coord.AdminLogin
		}

		d, err := run(r.Context(), cred, authflow.LoginOptions{})
		writeDecision(w, d, err, "")
	}
}

func (s *server) handleSignupDetails(w http.ResponseWriter, r *http.Request) {
	var body authflow.SignupDetails
	if !decode(w, r, &body) {
		return
	}

	signup, ok := s.resumeSignup(w, r)
	if !ok {
		return
	}
	if signup.Phase() == authflow.SignupPhaseProfile {
		_ = signup.Back()
	}

	d, err := signup.SubmitDetails(r.Context(), body)
	if serr := s.coord.SaveSignup(r.Context(), signup); serr != nil {
		http.Error(w, "signup draft unavailable", http.StatusServiceUnavailable)
		return
	}
	writeDecision(w, d, err, signup.Phase().String())
}

func (s *server) handleSignupBack(w http.ResponseWriter, r *http.Request) {
	signup, ok := s.resumeSignup(w, r)
	if !ok {
		return
	}
	if err := signup.Back(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err := s.coord.SaveSignup(r.Context(), signup); err != nil {
		http.Error(w, "signup draft unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"phase": signup.Phase().String(), "details": redacted(signup.Details())})
}

func (s *server) handleSignupComplete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DateOfBirth string          `json:"date_of_birth"`
		Gender      authflow.Gender `json:"gender"`
	}
	if !decode(w, r, &body) {
		return
	}

	var dob time.Time
	if body.DateOfBirth != "" {
		parsed, err := time.Parse(dateLayout, body.DateOfBirth)
		if err != nil {
			http.Error(w, "date_of_birth must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		dob = parsed
	}

	signup, ok := s.resumeSignup(w, r)
	if !ok {
		return
	}

	d, err := signup.Submit(r.Context(), authflow.SignupProfile{DateOfBirth: dob, Gender: body.Gender})
	if serr := s.coord.SaveSignup(r.Context(), signup); serr != nil {
		http.Error(w, "signup draft unavailable", http.StatusServiceUnavailable)
		return
	}
	writeDecision(w, d, err, signup.Phase().String())
}

func (s *server) handleSignupBounds(w http.ResponseWriter, _ *http.Request) {
	earliest, latest := s.coord.DateOfBirthBounds(time.Now())
	writeJSON(w, http.StatusOK, map[string]string{
		"min": earliest.Format(dateLayout),
		"max": latest.Format(dateLayout),
	})
}

func (s *server) handleSocial(w http.ResponseWriter, r *http.Request) {
	name, ok := social.ParseName(r.PathValue("provider"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &body) {
		return
	}

	d, err := s.coord.SocialLoginWithToken(r.Context(), name, body.Token)
	writeDecision(w, d, err, "")
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	rec, _ := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"page":             r.URL.Path,
		"user_id":          rec.UserID,
		"role":             rec.Role,
		"profile_complete": rec.ProfileComplete,
	})
}

func (s *server) resumeSignup(w http.ResponseWriter, r *http.Request) (*authflow.Signup, bool) {
	signup, err := s.coord.ResumeSignup(r.Context())
	if err != nil {
		http.Error(w, "signup draft unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return signup, true
}

/*
====================================
HELPERS
====================================
*/

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeDecision(w http.ResponseWriter, d authflow.Decision, err error, phase string) {
	if errors.Is(err, authflow.ErrSubmissionInFlight) {
		http.Error(w, "submission in flight", http.StatusConflict)
		return
	}
	if errors.Is(err, authflow.ErrSignupPhase) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		Route:          d.Route,
		Path:           d.Path,
		Message:        d.Message,
		Severity:       d.Severity.String(),
		ClearedSession: d.ClearedSession,
		Phase:          phase,
	})
}

func redacted(d authflow.SignupDetails) authflow.SignupDetails {
	d.Password = ""
	d.ConfirmPassword = ""
	return d
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
