package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/terra-clan/wellness-hub/internal/auth"
	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/storage"
)

const (
	minPasswordLength = 8
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordLength = 72
)

// Session is returned by signup and login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// UserService handles accounts, sign-in and the admin user list.
type UserService struct {
	repo    storage.Repository
	tokens  *auth.TokenManager
	limiter auth.Limiter
	revoker auth.Revoker
	now     func() time.Time
	idGen   func() string
}

func NewUserService(repo storage.Repository, tokens *auth.TokenManager, limiter auth.Limiter, revoker auth.Revoker) *UserService {
	if revoker == nil {
		revoker = auth.NewMemoryRevoker()
	}
	return &UserService{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		revoker: revoker,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   uuid.NewString,
	}
}

func validateCredentials(email, password string) (string, error) {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return "", NewInvalidError("email/password required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", NewInvalidError("invalid email address")
	}
	return email, nil
}

// Signup creates an account and signs it in.
func (s *UserService) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, NewInvalidError("password must be at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		return nil, NewInvalidError("password must be at most 72 bytes")
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		ID:        s.idGen(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		PassHash:  hash,
		CreatedAt: now,
		LastLogin: &now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, storageError(err, "user")
	}
	slog.Info("user signed up", "user_id", u.ID)
	return s.session(u)
}

// Login verifies credentials and records the login time.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, "login:"+email) {
		return nil, NewTooManyRequestsError("too many login attempts, try again later")
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		slog.Warn("failed to record last login", "user_id", u.ID, "error", err)
	}
	u.LastLogin = &now
	return s.session(u)
}

func (s *UserService) session(u *models.User) (*Session, error) {
	token, claims, err := s.tokens.Sign(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Authenticate resolves a bearer token, rejecting revoked ones.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, NewUnauthorizedError("invalid or expired token")
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, NewUnauthorizedError("token has been revoked")
	}
	return claims, nil
}

// Logout revokes the token until it would have expired.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return NewUnauthorizedError("not signed in")
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.Remaining(s.now()))
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, f models.UserFilters) ([]*models.User, error) {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.repo.ListUsers(ctx, f)
}

// SetAdmin grants or removes admin rights. Admins cannot demote themselves.
func (s *UserService) SetAdmin(ctx context.Context, actorID, id string, admin bool) (*models.User, error) {
	if actorID == id && !admin {
		return nil, NewForbiddenError("admins cannot remove their own admin rights")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsAdmin = admin
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, storageError(err, "user")
	}
	slog.Info("user admin flag changed", "user_id", id, "admin", admin, "by", actorID)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return NewForbiddenError("admins cannot delete their own account")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return storageError(err, "user")
	}
	return nil
}

// EnsureAdmin promotes the account with email, if it exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email string) error {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return errors.New("bootstrap admin account does not exist yet")
	}
	if u.IsAdmin {
		return nil
	}
	u.IsAdmin = true
	return s.repo.UpdateUser(ctx, u)
}
