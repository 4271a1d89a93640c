package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"natours-api/internal/aggregation"
	"natours-api/internal/core/auth"
	"natours-api/internal/core/events"
	"natours-api/internal/core/mailer"
	"natours-api/internal/core/server"
	"natours-api/internal/domain"
	"natours-api/internal/query"
	"natours-api/internal/repo"
	"natours-api/internal/service"
	mdw "natours-api/internal/transport/http/middleware"
	"natours-api/internal/transport/http/router"
)

func init() { gin.SetMode(gin.TestMode) }

const testSecret = "handler-secret-0123456789-0123456789"

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Send(_ context.Context, m mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) messages() []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mailer.Message(nil), o.sent...)
}

type tourStore struct {
	*query.MemoryExecutor[domain.Tour]
}

func (s *tourStore) Get(_ context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	for i := range s.Items {
		if s.Items[i].ID == id {
			t := s.Items[i]
			return &t, nil
		}
	}
	return nil, domain.ErrTourNotFound
}

func (s *tourStore) Create(_ context.Context, t *domain.Tour) error {
	t.ID = primitive.NewObjectID()
	s.Items = append(s.Items, *t)
	return nil
}

func (s *tourStore) Patch(_ context.Context, t *domain.Tour, _ []string) error {
	for i := range s.Items {
		if s.Items[i].ID == t.ID {
			s.Items[i] = *t
			return nil
		}
	}
	return domain.ErrTourNotFound
}

func (s *tourStore) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range s.Items {
		if s.Items[i].ID == id {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return nil
		}
	}
	return domain.ErrTourNotFound
}

func (s *tourStore) UpdateRatings(context.Context, primitive.ObjectID, int, float64) error {
	return nil
}

func (s *tourStore) Aggregate(context.Context, mongo.Pipeline, any) error { return nil }

type reviewStore struct{}

func (reviewStore) ForTour(primitive.ObjectID) query.Executor[domain.Review] {
	return &query.MemoryExecutor[domain.Review]{Fields: func(domain.Review) map[string]any { return nil }}
}

func (reviewStore) Get(context.Context, primitive.ObjectID) (*domain.Review, error) {
	return nil, domain.ErrReviewNotFound
}

func (reviewStore) Create(context.Context, *domain.Review) error { return nil }

func (reviewStore) RatingStats(context.Context, primitive.ObjectID) (int, float64, error) {
	return 0, domain.DefaultRatingsAverage, nil
}

func sampleTours() []domain.Tour {
	mk := func(name string, d domain.Difficulty, price float64) domain.Tour {
		return domain.Tour{ID: primitive.NewObjectID(), Name: name, Difficulty: d, Price: price, RatingsAverage: 4.5}
	}
	return []domain.Tour{
		mk("The Forest Hiker", domain.DifficultyEasy, 397),
		mk("The Sea Explorer", domain.DifficultyMedium, 497),
		mk("The Park Camper", domain.DifficultyEasy, 1497),
		mk("The Sports Lover", domain.DifficultyDifficult, 2997),
		mk("The City Wanderer", domain.DifficultyEasy, 1197),
	}
}

func tourFields(t domain.Tour) map[string]any {
	return map[string]any{
		"name":           t.Name,
		"difficulty":     string(t.Difficulty),
		"price":          t.Price,
		"ratingsAverage": t.RatingsAverage,
		"createdAt":      t.CreatedAt,
	}
}

type app struct {
	api    *gin.Engine
	admin  *gin.Engine
	store  *repo.PrincipalMemory
	tokens *auth.TokenService
	mail   *outbox
	tours  *tourStore
}

func newApp(t *testing.T) *app {
	t.Helper()
	hasher := auth.NewHasher(4)
	digest, err := hasher.Hash("pass1234")
	require.NoError(t, err)

	store := repo.NewPrincipalMemory(
		domain.Principal{ID: "u-1", Name: "Laura", Email: "laura@example.com", Role: domain.RoleUser, PasswordHash: digest, Active: true},
		domain.Principal{ID: "a-1", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, PasswordHash: digest, Active: true},
		domain.Principal{ID: "g-1", Name: "Guide", Email: "guide@example.com", Role: domain.RoleLeadGuide, PasswordHash: digest, Active: true},
	)
	tokens := auth.NewTokenService(testSecret, "natours", time.Hour)
	guard := &mdw.Authenticator{Tokens: tokens, Principals: store}
	box := &outbox{}
	tours := &tourStore{MemoryExecutor: &query.MemoryExecutor[domain.Tour]{Items: sampleTours(), Fields: tourFields}}
	log := zap.NewNop()

	authSvc := &service.AuthService{Principals: store, Hasher: hasher, Tokens: tokens, Events: events.Nop{}, Log: log}
	resets := &service.PasswordResetFlow{
		Principals: store,
		Resets:     auth.NewResetTokenService(10 * time.Minute),
		Hasher:     hasher,
		Tokens:     tokens,
		Mailer:     box,
		Events:     events.Nop{},
		Log:        log,
	}
	users := &service.UserService{Principals: store, Events: events.Nop{}, Log: log}
	tourSvc := &service.TourService{Tours: tours, Planner: aggregation.NewPlanner(), Log: log}
	reviewSvc := &service.ReviewService{Reviews: reviewStore{}, Tours: tours, Log: log}

	mods := router.NewRegistry(
		&AuthHandler{Auth: authSvc, Resets: resets, Guard: guard, Cookie: CookieOptions{MaxAge: 3600}, ResetURLBase: "http://test/api/v1/users/resetPassword", Log: log},
		&UserHandler{Users: users, Guard: guard},
		&TourHandler{Tours: tourSvc, Reviews: reviewSvc, Guard: guard},
		&ReviewHandler{Reviews: reviewSvc, Guard: guard},
		NewAdminHandler(users),
	)
	opts := server.Options{Name: "test", Dev: false}
	return &app{
		api:    router.NewAPIEngine(log, opts, mods),
		admin:  router.NewAdminEngine(log, opts, guard, mods),
		store:  store,
		tokens: tokens,
		mail:   box,
		tours:  tours,
	}
}

func (a *app) token(t *testing.T, id string) string {
	t.Helper()
	tok, err := a.tokens.Issue(id)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Status  string          `json:"status"`
	Token   string          `json:"token"`
	Results *int            `json:"results"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type call struct {
	method string
	path   string
	body   string
	token  string
}

func do(t *testing.T, h http.Handler, c call) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}
