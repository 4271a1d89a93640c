package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"natours-api/internal/core/auth"
	"natours-api/internal/core/events"
	"natours-api/internal/domain"
)

// Session is an authenticated principal with a freshly issued token.
type Session struct {
	Principal *domain.Principal
	Token     string
}

type SignupInput struct {
	Name            string
	Email           string
	Photo           string
	Password        string
	PasswordConfirm string
}

type AuthService struct {
	Principals PrincipalStore
	Hasher     *auth.Hasher
	Tokens     *auth.TokenService
	Events     Publisher
	Log        *zap.Logger
	Now        func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signup creates a principal with role user, whatever the input asks for.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" {
		return nil, domain.Validation("Please tell us your name!")
	}
	if email == "" {
		return nil, domain.Validation("Please provide your email")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}
	digest, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	photo := in.Photo
	if photo == "" {
		photo = "default.jpg"
	}
	now := s.now()
	p := &domain.Principal{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Photo:        photo,
		Role:         domain.RoleUser,
		PasswordHash: digest,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Principals.Create(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, events.PrincipalSignedUp, p.ID, "")
	return s.session(p, now)
}

// Login never says which half of the credentials was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.Validation("Please provide email and password!")
	}
	p, err := s.Principals.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrPrincipalNotFound) {
		return nil, domain.ErrIncorrectCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.Hasher.Verify(password, p.PasswordHash)
	if err != nil {
		logOr(s.Log).Error("stored password digest unreadable", zap.String("principal", p.ID), zap.Error(err))
		return nil, domain.ErrIncorrectCredentials
	}
	if !ok {
		return nil, domain.ErrIncorrectCredentials
	}
	return s.session(p, s.now())
}

// UpdatePassword changes the password of a logged-in principal after
// checking the current one, and re-issues the session.
func (s *AuthService) UpdatePassword(ctx context.Context, id, current, next, confirm string) (*Session, error) {
	p, err := s.Principals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.Hasher.Verify(current, p.PasswordHash)
	if err != nil || !ok {
		return nil, domain.Unauthenticated("Your current password is wrong.")
	}
	if err := validatePassword(next, confirm); err != nil {
		return nil, err
	}
	digest, err := s.Hasher.Hash(next)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Principals.SetPassword(ctx, id, digest, now); err != nil {
		return nil, err
	}
	p.PasswordHash = digest
	p.PasswordChangedAt = &now
	s.publish(ctx, events.PrincipalPasswordChange, id, "update")
	return s.session(p, now)
}

// session issues a token at the given instant. A token issued at the same
// instant as a password change stays valid.
func (s *AuthService) session(p *domain.Principal, at time.Time) (*Session, error) {
	tok, err := s.Tokens.IssueAt(p.ID, at)
	if err != nil {
		return nil, err
	}
	return &Session{Principal: p, Token: tok}, nil
}

func (s *AuthService) publish(ctx context.Context, typ, id, detail string) {
	publish(ctx, s.Events, s.Log, events.Event{Type: typ, PrincipalID: id, At: s.now().UTC(), Detail: detail})
}

func publish(ctx context.Context, p Publisher, log *zap.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), e); err != nil && log != nil {
		log.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}

func logOr(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
