package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"natours-api/internal/aggregation"
	"natours-api/internal/core/cache"
	"natours-api/internal/domain"
	"natours-api/internal/query"
	"natours-api/internal/repo"
)

const (
	// derivedNS versions every cached aggregation over tours.
	derivedNS = "tours"
	statsKey  = "tour-stats"
	planKey   = "monthly-plan"
)

type TourService struct {
	Tours    TourStore
	Planner  *aggregation.Planner
	Cache    *cache.Cache
	CacheTTL time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

func (s *TourService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TourService) List(ctx context.Context, v url.Values) (query.Result[domain.Tour], error) {
	return query.Execute[domain.Tour](ctx, query.New(v, TourSchema), s.Tours)
}

func (s *TourService) Get(ctx context.Context, idHex string) (*domain.Tour, error) {
	id, err := repo.ParseObjectID(idHex)
	if err != nil {
		return nil, err
	}
	return s.Tours.Get(ctx, id)
}

func (s *TourService) Create(ctx context.Context, t *domain.Tour) (*domain.Tour, error) {
	t.ID = primitive.NilObjectID
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.CreatedAt = s.now()
	if err := s.Tours.Create(ctx, t); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return t, nil
}

// Update overlays a JSON patch on the stored tour and validates the result.
// Fields the server maintains are dropped from the patch; only the rest are
// written.
func (s *TourService) Update(ctx context.Context, idHex string, patch []byte) (*domain.Tour, error) {
	t, err := s.Get(ctx, idHex)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(patch, &raw); err != nil {
		return nil, domain.Validation(fmt.Sprintf("Invalid input data. %v", err))
	}
	fields := make([]string, 0, len(raw))
	for k := range raw {
		if !domain.TourWritable(k) {
			delete(raw, k)
			continue
		}
		fields = append(fields, k)
	}
	if len(fields) == 0 {
		return t, nil
	}
	writable, _ := json.Marshal(raw)
	if err := json.Unmarshal(writable, t); err != nil {
		return nil, domain.Validation(fmt.Sprintf("Invalid input data. %v", err))
	}
	if _, ok := raw["name"]; ok {
		fields = append(fields, "slug")
	}
	sort.Strings(fields)
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.Tours.Patch(ctx, t, fields); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return t, nil
}

func (s *TourService) Delete(ctx context.Context, idHex string) error {
	id, err := repo.ParseObjectID(idHex)
	if err != nil {
		return err
	}
	if err := s.Tours.Delete(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

func (s *TourService) Stats(ctx context.Context, minRating float64) ([]aggregation.TourStat, error) {
	key := s.Cache.Versioned(ctx, derivedNS, fmt.Sprintf("%s:%g", statsKey, minRating))
	return cache.GetOrLoadJSON(s.Cache, ctx, key, s.CacheTTL, func(ctx context.Context) ([]aggregation.TourStat, error) {
		out := []aggregation.TourStat{}
		err := s.Tours.Aggregate(ctx, s.Planner.TourStats(minRating), &out)
		return out, err
	})
}

func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]aggregation.MonthStat, error) {
	pipeline, err := s.Planner.MonthlyPlan(year)
	if err != nil {
		return nil, err
	}
	key := s.Cache.Versioned(ctx, derivedNS, fmt.Sprintf("%s:%d", planKey, year))
	return cache.GetOrLoadJSON(s.Cache, ctx, key, s.CacheTTL, func(ctx context.Context) ([]aggregation.MonthStat, error) {
		out := []aggregation.MonthStat{}
		err := s.Tours.Aggregate(ctx, pipeline, &out)
		return out, err
	})
}

func (s *TourService) Within(ctx context.Context, distance, lat, lng float64, unit aggregation.Unit) ([]domain.Tour, error) {
	pipeline, err := s.Planner.Within(distance, lat, lng, unit)
	if err != nil {
		return nil, err
	}
	out := []domain.Tour{}
	if err := s.Tours.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate retires every cached aggregation after tours or their ratings
// change.
func (s *TourService) Invalidate(ctx context.Context) {
	s.Cache.Bump(context.WithoutCancel(ctx), derivedNS)
}
