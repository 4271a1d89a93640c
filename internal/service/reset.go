package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"natours-api/internal/core/auth"
	"natours-api/internal/core/events"
	"natours-api/internal/core/mailer"
	"natours-api/internal/domain"
)

const errSendingEmail = "There was an error sending the email. Try again later!"

// PasswordResetFlow issues one-time reset secrets by mail and redeems them.
type PasswordResetFlow struct {
	Principals PrincipalStore
	Resets     *auth.ResetTokenService
	Hasher     *auth.Hasher
	Tokens     *auth.TokenService
	Mailer     Mailer
	Events     Publisher
	Log        *zap.Logger
	Now        func() time.Time
}

func (f *PasswordResetFlow) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// RequestReset stores the hash of a fresh secret on the principal and mails
// the plaintext link. An unknown address yields domain.ErrUnknownEmail; a
// failed delivery clears the stored token before returning.
func (f *PasswordResetFlow) RequestReset(ctx context.Context, email, resetURLBase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.Principals.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrPrincipalNotFound) {
		return domain.ErrUnknownEmail
	}
	if err != nil {
		return err
	}

	secret, err := f.Resets.Generate()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Principals.StoreResetToken(ctx, p.ID, secret.Hash, secret.ExpiresAt); err != nil {
		return err
	}

	link := strings.TrimRight(resetURLBase, "/") + "/" + secret.Plain
	msg := mailer.Message{
		To:      p.Email,
		Name:    p.Name,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(f.Resets.TTL/time.Minute)),
		Text: "Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: " +
			link + ".\nIf you didn't forget your password, please ignore this email!",
	}
	if err := f.Mailer.Send(ctx, msg); err != nil {
		if cerr := f.Principals.ClearResetToken(context.WithoutCancel(ctx), p.ID); cerr != nil {
			logOr(f.Log).Error("reset token rollback failed", zap.String("principal", p.ID), zap.Error(cerr))
		}
		return domain.Operational(errSendingEmail, err)
	}
	return nil
}

// ConsumeReset redeems a reset secret, sets the new password and returns a
// session issued at the instant of the change.
func (f *PasswordResetFlow) ConsumeReset(ctx context.Context, plain, password, confirm string) (*Session, error) {
	if err := validatePassword(password, confirm); err != nil {
		return nil, err
	}
	if plain == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	hash := auth.HashSecret(plain)
	digest, err := f.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := f.now()
	p, err := f.Principals.ConsumeResetToken(ctx, hash, digest, now)
	if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		if derr := f.Principals.DiscardResetToken(context.WithoutCancel(ctx), hash); derr != nil {
			logOr(f.Log).Warn("discard reset token", zap.Error(derr))
		}
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, err
	}
	tok, err := f.Tokens.IssueAt(p.ID, now)
	if err != nil {
		return nil, err
	}
	publish(ctx, f.Events, f.Log, events.Event{Type: events.PrincipalPasswordChange, PrincipalID: p.ID, At: now.UTC(), Detail: "reset"})
	return &Session{Principal: p, Token: tok}, nil
}
