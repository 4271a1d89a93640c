// Package service holds the application use cases. Stores and collaborators
// are declared here as the narrow interfaces each use case needs.
package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"natours-api/internal/core/events"
	"natours-api/internal/core/mailer"
	"natours-api/internal/domain"
	"natours-api/internal/query"
)

// PrincipalStore reads only active principals; writes never hard-delete.
type PrincipalStore interface {
	query.Executor[domain.Principal]
	Create(ctx context.Context, p *domain.Principal) error
	FindByID(ctx context.Context, id string) (*domain.Principal, error)
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
	SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Principal, error)
	SetRole(ctx context.Context, id string, role domain.Role) (*domain.Principal, error)
	Deactivate(ctx context.Context, id string) error
	StoreResetToken(ctx context.Context, id, hash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// ConsumeResetToken matches hash with an expiry after now, sets the new
	// password and clears the token in one atomic step.
	ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Principal, error)
	DiscardResetToken(ctx context.Context, hash string) error
}

type TourStore interface {
	query.Executor[domain.Tour]
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error)
	Create(ctx context.Context, t *domain.Tour) error
	// Patch writes only the named fields of t, leaving concurrent rating
	// updates intact.
	Patch(ctx context.Context, t *domain.Tour, fields []string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	UpdateRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error
}

type ReviewStore interface {
	ForTour(tour primitive.ObjectID) query.Executor[domain.Review]
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Review, error)
	Create(ctx context.Context, r *domain.Review) error
	RatingStats(ctx context.Context, tour primitive.ObjectID) (int, float64, error)
}

// Invalidator drops cached data derived from tours.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Mailer interface {
	Send(ctx context.Context, m mailer.Message) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}
