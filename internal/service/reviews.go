package service

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"natours-api/internal/domain"
	"natours-api/internal/query"
	"natours-api/internal/repo"
)

type ReviewService struct {
	Reviews ReviewStore
	Tours   TourStore
	Derived Invalidator
	Log     *zap.Logger
	Now     func() time.Time
}

// List returns reviews of one tour, or of all tours when tourHex is empty.
func (s *ReviewService) List(ctx context.Context, tourHex string, v url.Values) (query.Result[domain.Review], error) {
	tour := primitive.NilObjectID
	if tourHex != "" {
		id, err := repo.ParseObjectID(tourHex)
		if err != nil {
			return query.Result[domain.Review]{}, err
		}
		tour = id
	}
	return query.Execute[domain.Review](ctx, query.New(v, ReviewSchema), s.Reviews.ForTour(tour))
}

func (s *ReviewService) Get(ctx context.Context, idHex string) (*domain.Review, error) {
	id, err := repo.ParseObjectID(idHex)
	if err != nil {
		return nil, err
	}
	return s.Reviews.Get(ctx, id)
}

type ReviewInput struct {
	Review string
	Rating int
	Tour   string
}

// Create stores a review by author on a visible tour and refreshes the
// tour's rating aggregate.
func (s *ReviewService) Create(ctx context.Context, author *domain.Principal, in ReviewInput) (*domain.Review, error) {
	tourID, err := repo.ParseObjectID(in.Tour)
	if err != nil {
		return nil, err
	}
	if _, err := s.Tours.Get(ctx, tourID); err != nil {
		return nil, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	r := &domain.Review{
		Review:    in.Review,
		Rating:    in.Rating,
		CreatedAt: now,
		Tour:      tourID,
		User:      author.ID,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.Reviews.Create(ctx, r); err != nil {
		return nil, err
	}
	s.refreshRatings(context.WithoutCancel(ctx), tourID)
	return r, nil
}

func (s *ReviewService) refreshRatings(ctx context.Context, tour primitive.ObjectID) {
	n, avg, err := s.Reviews.RatingStats(ctx, tour)
	if err == nil {
		err = s.Tours.UpdateRatings(ctx, tour, n, avg)
	}
	if err != nil {
		logOr(s.Log).Warn("refresh tour ratings", zap.String("tour", tour.Hex()), zap.Error(err))
		return
	}
	if s.Derived != nil {
		s.Derived.Invalidate(ctx)
	}
}
