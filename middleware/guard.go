package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authflow/session"
	"github.com/MrEthical07/authflow/token"
)

// Mode is the requirement a Guard enforces.
type Mode uint8

const (
	ModeSession Mode = iota
	ModeProfileComplete
	ModeAdmin
)

// Default client id transport names.
const (
	DefaultClientIDCookie = "af_client"
	DefaultClientIDHeader = "X-Client-ID"
)

// SessionGetter reads a client's session. *session.Store satisfies it.
type SessionGetter interface {
	Get(ctx context.Context, clientID string) (*session.Record, error)
}

// TokenParser verifies a session token. *token.Manager satisfies it.
type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// Config wires a Guard. Sessions or Tokens must be set.
type Config struct {
	Sessions SessionGetter
	// Tokens, when set, accepts bearer tokens and also verifies the token
	// stored with a session record.
	Tokens TokenParser

	ClientIDCookie string
	ClientIDHeader string

	// LoginPath and CompleteProfilePath turn rejections into 303 redirects
	// for browsers. Empty means answer with a status code.
	LoginPath           string
	CompleteProfilePath string

	AdminRole string
}

type sessionContextKey struct{}

// SessionFromContext returns the record a Guard attached to ctx.
func SessionFromContext(ctx context.Context) (*session.Record, bool) {
	rec, ok := ctx.Value(sessionContextKey{}).(*session.Record)
	return rec, ok
}

// ClientID returns the client id carried by r, from the cookie first and
// then the header.
func ClientID(r *http.Request, cfg Config) string {
	cookieName, header := cfg.ClientIDCookie, cfg.ClientIDHeader
	if cookieName == "" {
		cookieName = DefaultClientIDCookie
	}
	if header == "" {
		header = DefaultClientIDHeader
	}

	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(header))
}

var errUnauthenticated = errors.New("unauthenticated")

// Guard returns middleware enforcing mode.
func Guard(cfg Config, mode Mode) func(http.Handler) http.Handler {
	if cfg.AdminRole == "" {
		cfg.AdminRole = "admin"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, err := resolve(r, cfg)
			if err != nil {
				reject(w, r, cfg.LoginPath, http.StatusUnauthorized)
				return
			}

			switch mode {
			case ModeProfileComplete:
				if !rec.ProfileComplete {
					reject(w, r, cfg.CompleteProfilePath, http.StatusForbidden)
					return
				}
			case ModeAdmin:
				if rec.Role != cfg.AdminRole {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(r *http.Request, cfg Config) (*session.Record, error) {
	if raw, ok := bearerToken(r.Header.Get("Authorization")); ok {
		if cfg.Tokens == nil {
			return nil, errUnauthenticated
		}
		claims, err := cfg.Tokens.Parse(raw)
		if err != nil {
			return nil, err
		}
		return &session.Record{
			ClientID:        ClientID(r, cfg),
			UserID:          claims.UserID,
			Role:            claims.Role,
			ProfileComplete: claims.ProfileComplete,
			Token:           raw,
		}, nil
	}

	if cfg.Sessions == nil {
		return nil, errUnauthenticated
	}
	clientID := ClientID(r, cfg)
	if clientID == "" {
		return nil, errUnauthenticated
	}
	rec, err := cfg.Sessions.Get(r.Context(), clientID)
	if err != nil {
		return nil, err
	}
	if cfg.Tokens != nil {
		claims, err := cfg.Tokens.Parse(rec.Token)
		if err != nil {
			return nil, err
		}
		if claims.UserID != rec.UserID {
			return nil, errUnauthenticated
		}
	}
	return rec, nil
}

func reject(w http.ResponseWriter, r *http.Request, redirect string, status int) {
	if redirect != "" && r.Method == http.MethodGet {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	raw := value[len(bearer):]
	if raw == "" {
		return "", false
	}

	return raw, true
}
