package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatekeeper/internal/domain"
	"gatekeeper/internal/validate"

	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence the service needs. repos.UserRepo implements it.
type UserStore interface {
	Insert(ctx context.Context, u *domain.User) error
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ByID(ctx context.Context, id string) (*domain.User, error)
	Approve(ctx context.Context, id string) (*domain.User, error)
	ListPending(ctx context.Context) ([]domain.User, error)
}

// LoginGuard runs after the user is found and before the password is checked.
type LoginGuard func(ctx context.Context, u *domain.User) error

// ApprovalGate blocks accounts that an administrator has not approved yet.
func ApprovalGate(_ context.Context, u *domain.User) error {
	if !u.Approved {
		return domain.ErrPendingApproval
	}
	return nil
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	User      *domain.User
}

type Options struct {
	RequireApproval bool
	BcryptCost      int
	// Denylist enables server-side revocation on logout. Nil keeps logout advisory.
	Denylist Denylist
}

type AuthService struct {
	Users    UserStore
	Tokens   *TokenIssuer
	Guards   []LoginGuard
	Denylist Denylist

	requireApproval bool
	cost            int
	dummyHash       []byte
}

func NewAuthService(users UserStore, tokens *TokenIssuer, opts Options) (*AuthService, error) {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("gatekeeper-timing-equalizer"), cost)
	if err != nil {
		return nil, err
	}
	s := &AuthService{
		Users:           users,
		Tokens:          tokens,
		Denylist:        opts.Denylist,
		requireApproval: opts.RequireApproval,
		cost:            cost,
		dummyHash:       dummy,
	}
	if opts.RequireApproval {
		s.Guards = append(s.Guards, ApprovalGate)
	}
	return s, nil
}

// Register creates a self-service account. It starts unapproved when the
// approval gate is enabled.
func (s *AuthService) Register(ctx context.Context, in validate.Account) (*domain.User, error) {
	return s.create(ctx, in, !s.requireApproval, domain.RoleUser)
}

// CreateByAdmin creates an approved account on behalf of an administrator.
func (s *AuthService) CreateByAdmin(ctx context.Context, actor *domain.User, in validate.Account) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.create(ctx, in, true, domain.RoleUser)
}

// SeedAdmin creates the operator account. When the email is already taken it
// returns the existing user and created=false.
func (s *AuthService) SeedAdmin(ctx context.Context, in validate.Account) (u *domain.User, created bool, err error) {
	in = in.Normalize()
	if err := validate.Struct(in); err != nil {
		return nil, false, err
	}
	existing, err := s.Users.ByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, err
	}
	u, err = s.create(ctx, in, true, domain.RoleAdmin)
	if errors.Is(err, domain.ErrDuplicateEmail) {
		// Lost a race with a concurrent seed.
		existing, lerr := s.Users.ByEmail(ctx, in.Email)
		return existing, false, lerr
	}
	return u, err == nil, err
}

func (s *AuthService) create(ctx context.Context, in validate.Account, approved bool, role string) (*domain.User, error) {
	in = in.Normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Email:    in.Email,
		Name:     in.Name,
		Hash:     string(hash),
		Approved: approved,
		Role:     role,
	}
	if err := s.Users.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and issues a session token.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	creds := validate.Credentials{Email: validate.Email(email), Password: password}
	if err := validate.Struct(creds); err != nil {
		return nil, err
	}
	u, err := s.Users.ByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Spend the same time as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		}
		return nil, err
	}
	for _, guard := range s.Guards {
		if err := guard(ctx, u); err != nil {
			return nil, err
		}
	}
	// bcrypt only reads the first 72 bytes, so a longer input could match a
	// stored password it merely starts with.
	if len(password) > validate.MaxPasswordBytes {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password[:validate.MaxPasswordBytes]))
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	token, claims, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// ValidateSession returns the user id embedded in a valid token.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (string, error) {
	claims, err := s.claims(ctx, token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// CurrentUser validates the token and loads its user from the store, so the
// role is always the stored one.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	return u, err
}

func (s *AuthService) claims(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if s.Denylist != nil {
		revoked, err := s.Denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check denylist: %w", err)
		}
		if revoked {
			return nil, domain.ErrInvalidToken
		}
	}
	return claims, nil
}

// Logout revokes the token when a denylist is configured. Without one the
// token stays valid until it expires and only the client cookie is cleared.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.Denylist == nil || token == "" {
		return nil
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.Denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Approve moves a pending account to approved.
func (s *AuthService) Approve(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	id, ok := validate.ID(userID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.Users.Approve(ctx, id)
}

// PendingUsers lists accounts waiting for approval.
func (s *AuthService) PendingUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.Users.ListPending(ctx)
}
