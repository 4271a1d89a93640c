package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"natours-api/internal/core/auth"
	"natours-api/internal/core/events"
	"natours-api/internal/core/mailer"
	"natours-api/internal/domain"
	"natours-api/internal/repo"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const testSecret = "test-secret-0123456789-0123456789-abc"

type fixture struct {
	clock  *testClock
	store  *repo.PrincipalMemory
	hasher *auth.Hasher
	tokens *auth.TokenService
	resets *auth.ResetTokenService
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	hasher := auth.NewHasher(4)
	digest, err := hasher.Hash("pass1234")
	require.NoError(t, err)

	tokens := auth.NewTokenService(testSecret, "natours", 90*time.Minute)
	tokens.Now = clock.Now
	resets := auth.NewResetTokenService(10 * time.Minute)
	resets.Now = clock.Now

	store := repo.NewPrincipalMemory(
		domain.Principal{ID: "u-1", Name: "Laura", Email: "laura@example.com", Role: domain.RoleUser, PasswordHash: digest, Active: true},
		domain.Principal{ID: "u-2", Name: "Gone", Email: "gone@example.com", Role: domain.RoleUser, PasswordHash: digest, Active: false},
	)
	return &fixture{clock: clock, store: store, hasher: hasher, tokens: tokens, resets: resets, events: &recordingPublisher{}}
}

func (f *fixture) authService() *AuthService {
	return &AuthService{Principals: f.store, Hasher: f.hasher, Tokens: f.tokens, Events: f.events, Log: zap.NewNop(), Now: f.clock.Now}
}

func (f *fixture) resetFlow(m Mailer) *PasswordResetFlow {
	return &PasswordResetFlow{
		Principals: f.store,
		Resets:     f.resets,
		Hasher:     f.hasher,
		Tokens:     f.tokens,
		Mailer:     m,
		Events:     f.events,
		Log:        zap.NewNop(),
		Now:        f.clock.Now,
	}
}
