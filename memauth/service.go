package memauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/phone"
	"github.com/MrEthical07/authflow/social"
	"github.com/MrEthical07/authflow/token"
	"github.com/google/uuid"
)

const (
	// RoleMember is given to every signed-up account.
	RoleMember = "member"
	// RoleAdmin is the role authflow routes to the admin dashboard.
	RoleAdmin = "admin"

	msgDuplicateEmail = "An account with this email already exists"
	msgDuplicatePhone = "An account with this phone number already exists"
)

var (
	// ErrDuplicate is returned by AddUser for a taken email or phone.
	ErrDuplicate = errors.New("memauth: duplicate identifier")
	// ErrUnknownUser is returned for a user id that does not exist.
	ErrUnknownUser = errors.New("memauth: unknown user")
)

// NewUser describes a seeded account.
type NewUser struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	Role            string
	ProfileComplete bool
}

type user struct {
	id              string
	name            string
	email           string
	phone           string
	passwordHash    string
	role            string
	profileComplete bool
	dateOfBirth     time.Time
	gender          authflow.Gender
}

type socialKey struct {
	provider social.Name
	token    string
}

// Service implements authflow.AuthService. Safe for concurrent use.
type Service struct {
	hasher *password.Hasher
	tokens *token.Manager
	newID  func() string

	mu           sync.RWMutex
	users        map[string]*user
	byIdentifier map[string]string
	social       map[socialKey]string
}

var _ authflow.AuthService = (*Service)(nil)

// New returns an empty Service. tokens may be nil, in which case results
// carry no token.
func New(hasher *password.Hasher, tokens *token.Manager) (*Service, error) {
	if hasher == nil {
		return nil, errors.New("memauth: hasher required")
	}
	return &Service{
		hasher:       hasher,
		tokens:       tokens,
		newID:        uuid.NewString,
		users:        make(map[string]*user),
		byIdentifier: make(map[string]string),
		social:       make(map[socialKey]string),
	}, nil
}

// AddUser seeds an account and returns its id.
func (s *Service) AddUser(u NewUser) (string, error) {
	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return "", err
	}
	role := u.Role
	if role == "" {
		role = RoleMember
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &user{
		id:              s.newID(),
		name:            u.Name,
		email:           u.Email,
		phone:           phone.Normalize(u.Phone),
		passwordHash:    hash,
		role:            role,
		profileComplete: u.ProfileComplete,
	}
	if msg := s.duplicateLocked(rec); msg != "" {
		return "", ErrDuplicate
	}
	s.insertLocked(rec)
	return rec.id, nil
}

// LinkSocial makes providerToken from provider sign in as userID.
func (s *Service) LinkSocial(provider social.Name, providerToken, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrUnknownUser
	}
	s.social[socialKey{provider, providerToken}] = userID
	return nil
}

// CompleteProfile marks userID's profile as complete.
func (s *Service) CompleteProfile(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUnknownUser
	}
	u.profileComplete = true
	return nil
}

// Login verifies identifier, an email or phone, against its stored hash.
// Failures carry no message so the caller shows its default.
func (s *Service) Login(ctx context.Context, identifier, pw string, _ authflow.LoginOptions) (authflow.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return authflow.AuthResult{}, err
	}

	s.mu.RLock()
	id, ok := s.byIdentifier[identifierKey(identifier)]
	var u user
	if ok {
		u = *s.users[id]
	}
	s.mu.RUnlock()

	if !ok {
		// equalize timing with a real verification
		_, _ = s.hasher.Verify(pw, dummyHash(s.hasher))
		return authflow.AuthResult{}, nil
	}

	match, err := s.hasher.Verify(pw, u.passwordHash)
	if err != nil {
		return authflow.AuthResult{}, err
	}
	if !match {
		return authflow.AuthResult{}, nil
	}

	if upgrade, _ := s.hasher.NeedsUpgrade(u.passwordHash); upgrade {
		if hash, err := s.hasher.Hash(pw); err == nil {
			s.mu.Lock()
			if cur, ok := s.users[u.id]; ok {
				cur.passwordHash = hash
			}
			s.mu.Unlock()
		}
	}

	return s.result(&u)
}

// Signup creates a member account with an incomplete profile.
func (s *Service) Signup(ctx context.Context, p authflow.SignupPayload) (authflow.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return authflow.AuthResult{}, err
	}

	dob, err := time.Parse(time.RFC3339Nano, p.DateOfBirth)
	if err != nil {
		return authflow.AuthResult{Error: "Invalid date of birth"}, nil
	}
	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return authflow.AuthResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &user{
		id:           s.newID(),
		name:         p.Name,
		email:        p.Email,
		phone:        phone.Normalize(p.Phone),
		passwordHash: hash,
		role:         RoleMember,
		dateOfBirth:  dob,
		gender:       p.Gender,
	}
	if msg := s.duplicateLocked(rec); msg != "" {
		return authflow.AuthResult{Error: msg}, nil
	}
	s.insertLocked(rec)

	return s.result(rec)
}

// SocialLogin signs in the user linked to providerToken.
func (s *Service) SocialLogin(ctx context.Context, provider social.Name, providerToken string) (authflow.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return authflow.AuthResult{}, err
	}

	s.mu.RLock()
	id, ok := s.social[socialKey{provider, providerToken}]
	var u user
	if ok {
		u = *s.users[id]
	}
	s.mu.RUnlock()

	if !ok {
		return authflow.AuthResult{Error: provider.Title() + " account is not linked"}, nil
	}
	return s.result(&u)
}

func (s *Service) result(u *user) (authflow.AuthResult, error) {
	var tok string
	if s.tokens != nil && s.tokens.CanSign() {
		var err error
		tok, err = s.tokens.Issue(u.id, u.role, u.profileComplete)
		if err != nil {
			return authflow.AuthResult{}, err
		}
	}

	return authflow.AuthResult{
		Success: true,
		User: &authflow.User{
			ID:              u.id,
			Role:            u.role,
			ProfileComplete: u.profileComplete,
			Token:           tok,
		},
	}, nil
}

func (s *Service) duplicateLocked(u *user) string {
	if u.email != "" {
		if _, taken := s.byIdentifier[identifierKey(u.email)]; taken {
			return msgDuplicateEmail
		}
	}
	if u.phone != "" {
		if _, taken := s.byIdentifier[identifierKey(u.phone)]; taken {
			return msgDuplicatePhone
		}
	}
	return ""
}

func (s *Service) insertLocked(u *user) {
	s.users[u.id] = u
	if u.email != "" {
		s.byIdentifier[identifierKey(u.email)] = u.id
	}
	if u.phone != "" {
		s.byIdentifier[identifierKey(u.phone)] = u.id
	}
}

// identifierKey folds emails to lower case and phones to their normalized
// form so either spelling finds the account.
func identifierKey(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	if n := phone.Normalize(identifier); n != "" {
		return n
	}
	return strings.ToLower(identifier)
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash(h *password.Hasher) string {
	dummyOnce.Do(func() {
		dummy, _ = h.Hash("memauth-dummy-password")
	})
	return dummy
}
