// Package auth issues and resolves the opaque bearer tokens that scope
// every task operation to a user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidSignup      = errors.New("invalid signup")
	ErrUnknownUser        = errors.New("unknown user")
)

// MinPasswordLength is enforced at signup.
const MinPasswordLength = 6

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists users and session tokens.
type Store interface {
	CreateUser(ctx context.Context, u User, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (User, string, error)
	CreateSession(ctx context.Context, token, userID string) error
	UserByToken(ctx context.Context, token string) (User, error)
	DeleteSession(ctx context.Context, token string) error
}

// Service implements signup, login and token resolution over a Store.
type Service struct {
	store Store
	cost  int
}

func NewService(store Store) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// Signup registers a new user.
func (s *Service) Signup(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidSignup)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: invalid email", ErrInvalidSignup)
	}
	if len(password) < MinPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: time.Now().UTC()}
	if err := s.store.CreateUser(ctx, u, string(hash)); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login checks credentials and returns a fresh session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	u, hash, err := s.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", User{}, ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.store.CreateSession(ctx, token, u.ID); err != nil {
		return "", User{}, err
	}
	return token, u, nil
}

// Lookup returns the registered user with email. Local tools use it to
// act on behalf of an account without a session.
func (s *Service) Lookup(ctx context.Context, email string) (User, error) {
	u, _, err := s.store.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrInvalidCredentials) {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownUser, email)
	}
	return u, err
}

// Resolve returns the user owning token.
func (s *Service) Resolve(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthorized
	}
	return s.store.UserByToken(ctx, token)
}

// Logout revokes token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
