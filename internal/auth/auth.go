// Package auth is the identity provider: email/password accounts, a
// persisted session, and auth-state change notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"leadboard/internal/storage"
)

// Errors surfaced verbatim on the sign-in form.
var (
	ErrMissingSecret      = errors.New("identity provider is not configured: CRM_AUTH_SECRET is empty")
	ErrEmailInUse         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrNotSignedIn        = errors.New("not signed in")
)

const minPasswordLength = 6

// User is the signed-in identity as seen by the rest of the app.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// UserStore is the persistence the provider needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *storage.User) error
	UserByEmail(ctx context.Context, email string) (*storage.User, error)
	UserByID(ctx context.Context, id string) (*storage.User, error)
	UpdateDisplayName(ctx context.Context, id, name string) error
}

// Provider implements sign-up, sign-in, sign-out and auth-state
// subscriptions.
type Provider struct {
	store    UserStore
	sessions *sessionFile
	logger   zerolog.Logger

	mu        sync.Mutex
	current   *User
	restored  bool
	listeners map[int]func(*User)
	nextID    int
}

// New builds a provider. secret signs persisted sessions and must not be
// empty.
func New(store UserStore, secret []byte, sessionPath string, logger zerolog.Logger) (*Provider, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Provider{
		store:     store,
		sessions:  &sessionFile{path: sessionPath, secret: secret, ttl: sessionTTL, now: time.Now},
		logger:    logger,
		listeners: make(map[int]func(*User)),
	}, nil
}

// OnAuthStateChanged registers fn to receive the current user (nil when
// signed out) after every auth change. If the session has already been
// restored fn is called immediately. The returned func unsubscribes.
func (p *Provider) OnAuthStateChanged(fn func(*User)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	restored := p.restored
	current := p.current
	p.mu.Unlock()

	if restored {
		fn(cloneUser(current))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Current returns the signed-in user, or nil.
func (p *Provider) Current() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneUser(p.current)
}

// Restore loads the persisted session, if any, and notifies listeners.
func (p *Provider) Restore(ctx context.Context) error {
	var user *User
	userID, err := p.sessions.load()
	switch {
	case err == nil:
		stored, lookupErr := p.store.UserByID(ctx, userID)
		if lookupErr != nil {
			p.logger.Warn().Err(lookupErr).Str("user", userID).Msg("session user missing")
			_ = p.sessions.clear()
		} else {
			user = fromStorage(stored)
		}
	case errors.Is(err, errNoSession):
	default:
		p.logger.Warn().Err(err).Msg("discarding persisted session")
		_ = p.sessions.clear()
	}
	p.setCurrent(user)
	return nil
}

// SignUp creates an identity, signs it in and persists the session.
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt generate: %w", err)
	}
	stored := &storage.User{Email: email, PasswordHash: string(hash), DisplayName: strings.TrimSpace(displayName)}
	if err := p.store.CreateUser(ctx, stored); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user := fromStorage(stored)
	if err := p.sessions.save(user.ID); err != nil {
		return nil, err
	}
	p.logger.Info().Str("user", user.ID).Msg("signed up")
	p.setCurrent(user)
	return cloneUser(user), nil
}

// SignIn verifies credentials and persists the session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*User, error) {
	stored, err := p.store.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		p.logger.Info().Str("user", stored.ID).Msg("password mismatch")
		return nil, ErrInvalidCredentials
	}
	user := fromStorage(stored)
	if err := p.sessions.save(user.ID); err != nil {
		return nil, err
	}
	p.logger.Info().Str("user", user.ID).Msg("signed in")
	p.setCurrent(user)
	return cloneUser(user), nil
}

// SignOut forgets the persisted session and notifies listeners.
func (p *Provider) SignOut() error {
	err := p.sessions.clear()
	p.setCurrent(nil)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// UpdateDisplayName renames the signed-in user.
func (p *Provider) UpdateDisplayName(ctx context.Context, name string) error {
	current := p.Current()
	if current == nil {
		return ErrNotSignedIn
	}
	name = strings.TrimSpace(name)
	if err := p.store.UpdateDisplayName(ctx, current.ID, name); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	current.DisplayName = name
	p.setCurrent(current)
	return nil
}

func (p *Provider) setCurrent(user *User) {
	p.mu.Lock()
	p.current = cloneUser(user)
	p.restored = true
	fns := make([]func(*User), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(cloneUser(user))
	}
}

func fromStorage(u *storage.User) *User {
	return &User{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
