package service

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"natours-api/internal/aggregation"
	"natours-api/internal/core/cache"
	"natours-api/internal/domain"
	"natours-api/internal/query"
)

// memTours is a TourStore over a slice. Aggregate records the pipeline and
// answers with canned rows.
type memTours struct {
	*query.MemoryExecutor[domain.Tour]
	pipelines []mongo.Pipeline
	stats     []aggregation.TourStat
	patched   [][]string
}

func tourFields(t domain.Tour) map[string]any {
	return map[string]any{
		"name":           t.Name,
		"difficulty":     string(t.Difficulty),
		"price":          t.Price,
		"ratingsAverage": t.RatingsAverage,
		"duration":       t.Duration,
		"createdAt":      t.CreatedAt,
	}
}

func newMemTours(tours ...domain.Tour) *memTours {
	return &memTours{MemoryExecutor: &query.MemoryExecutor[domain.Tour]{Items: tours, Fields: tourFields}}
}

func (m *memTours) Get(_ context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	for i := range m.Items {
		if m.Items[i].ID == id {
			t := m.Items[i]
			return &t, nil
		}
	}
	return nil, domain.ErrTourNotFound
}

func (m *memTours) Create(_ context.Context, t *domain.Tour) error {
	t.ID = primitive.NewObjectID()
	m.Items = append(m.Items, *t)
	return nil
}

// Patch copies only the named fields onto the stored tour.
func (m *memTours) Patch(_ context.Context, t *domain.Tour, fields []string) error {
	for i := range m.Items {
		if m.Items[i].ID != t.ID {
			continue
		}
		m.patched = append(m.patched, fields)
		src, _ := json.Marshal(t)
		var all map[string]json.RawMessage
		_ = json.Unmarshal(src, &all)
		picked := map[string]json.RawMessage{}
		for _, f := range fields {
			if v, ok := all[f]; ok {
				picked[f] = v
			}
		}
		b, _ := json.Marshal(picked)
		return json.Unmarshal(b, &m.Items[i])
	}
	return domain.ErrTourNotFound
}

func (m *memTours) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			return nil
		}
	}
	return domain.ErrTourNotFound
}

func (m *memTours) UpdateRatings(_ context.Context, id primitive.ObjectID, n int, avg float64) error {
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items[i].RatingsQuantity = n
			m.Items[i].RatingsAverage = avg
			return nil
		}
	}
	return domain.ErrTourNotFound
}

func (m *memTours) Aggregate(_ context.Context, p mongo.Pipeline, out any) error {
	m.pipelines = append(m.pipelines, p)
	if dst, ok := out.(*[]aggregation.TourStat); ok {
		*dst = append(*dst, m.stats...)
	}
	return nil
}

func sampleTours() []domain.Tour {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(name string, d domain.Difficulty, price, rating float64, offset int) domain.Tour {
		return domain.Tour{
			ID: primitive.NewObjectID(), Name: name, Difficulty: d, Price: price, RatingsAverage: rating,
			Duration: 5, MaxGroupSize: 10, Summary: "s", ImageCover: "c.jpg",
			CreatedAt: base.Add(time.Duration(offset) * time.Hour),
		}
	}
	return []domain.Tour{
		mk("The Forest Hiker", domain.DifficultyEasy, 397, 4.7, 0),
		mk("The Sea Explorer", domain.DifficultyMedium, 497, 4.8, 1),
		mk("The Snow Adventurer", domain.DifficultyDifficult, 997, 4.5, 2),
		mk("The City Wanderer", domain.DifficultyEasy, 1197, 4.6, 3),
		mk("The Park Camper", domain.DifficultyEasy, 1497, 4.9, 4),
		mk("The Sports Lover", domain.DifficultyDifficult, 2997, 4.7, 5),
	}
}

func newTourService(store *memTours) *TourService {
	return &TourService{
		Tours:    store,
		Planner:  aggregation.NewPlanner(),
		Cache:    cache.New("", "", 0, zap.NewNop()),
		CacheTTL: time.Minute,
		Log:      zap.NewNop(),
	}
}

func TestTourListScenario(t *testing.T) {
	svc := newTourService(newMemTours(sampleTours()...))
	v, _ := url.ParseQuery("difficulty=easy&sort=-price&limit=2&page=1")
	res, err := svc.List(context.Background(), v)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "The Park Camper", res.Items[0].Name)
	assert.Equal(t, "The City Wanderer", res.Items[1].Name)
	assert.EqualValues(t, 3, res.Total)
}

func TestTourListTopCheapAlias(t *testing.T) {
	svc := newTourService(newMemTours(sampleTours()...))
	res, err := svc.List(context.Background(), AliasTopTours(url.Values{"limit": {"50"}}))
	require.NoError(t, err)
	require.Len(t, res.Items, 5)
	assert.Equal(t, "The Park Camper", res.Items[0].Name)
	assert.Equal(t, []string{"name", "price", "ratingsAverage", "summary", "difficulty"}, res.Spec.Projection.Fields)
}

func TestTourListPageOutOfRange(t *testing.T) {
	svc := newTourService(newMemTours(sampleTours()...))
	_, err := svc.List(context.Background(), url.Values{"page": {"9"}, "limit": {"5"}})
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
}

func TestTourCreateUpdateDelete(t *testing.T) {
	store := newMemTours()
	svc := newTourService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, &domain.Tour{Name: "short"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	created, err := svc.Create(ctx, &domain.Tour{
		Name: "The Northern Lights", Duration: 3, MaxGroupSize: 12, Difficulty: domain.DifficultyEasy,
		Price: 1497, Summary: "Enjoy the Northern Lights", ImageCover: "tour-9-cover.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "the-northern-lights", created.Slug)
	assert.False(t, created.ID.IsZero())

	updated, err := svc.Update(ctx, created.ID.Hex(), []byte(`{"price": 999, "name": "The Southern Lights"}`))
	require.NoError(t, err)
	assert.Equal(t, 999.0, updated.Price)
	assert.Equal(t, "the-southern-lights", updated.Slug)
	assert.Equal(t, created.ID, updated.ID)

	_, err = svc.Update(ctx, created.ID.Hex(), []byte(`{"priceDiscount": 5000}`))
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Get(ctx, "not-an-id")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	require.NoError(t, svc.Delete(ctx, created.ID.Hex()))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID.Hex()), domain.ErrTourNotFound)
}

func TestTourStatsUsesVisiblePipeline(t *testing.T) {
	store := newMemTours()
	store.stats = []aggregation.TourStat{{Difficulty: "EASY", NumTours: 3, AvgPrice: 1030}}
	svc := newTourService(store)

	stats, err := svc.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, store.stats, stats)
	require.Len(t, store.pipelines, 1)
	assert.Equal(t, aggregation.Visibility, store.pipelines[0][0])
}

func TestTourMonthlyPlanAndWithin(t *testing.T) {
	store := newMemTours()
	svc := newTourService(store)
	ctx := context.Background()

	plan, err := svc.MonthlyPlan(ctx, 2021)
	require.NoError(t, err)
	assert.NotNil(t, plan)

	_, err = svc.MonthlyPlan(ctx, -1)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Within(ctx, 200, 34.1, -118.1, aggregation.Miles)
	require.NoError(t, err)
	last := store.pipelines[len(store.pipelines)-1]
	assert.Equal(t, aggregation.Visibility, last[0])
	assert.Equal(t, "$match", last[1][0].Key)
	_, isDoc := last[1][0].Value.(bson.D)
	assert.True(t, isDoc)

	_, err = svc.Within(ctx, 200, 34.1, -118.1, "yards")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestTourUpdateLeavesRatingsToReviews(t *testing.T) {
	tours := sampleTours()
	store := newMemTours(tours...)
	svc := newTourService(store)
	ctx := context.Background()
	id := tours[0].ID

	// a review lands between the read and the write of the patch
	require.NoError(t, store.UpdateRatings(ctx, id, 7, 3.9))

	updated, err := svc.Update(ctx, id.Hex(),
		[]byte(`{"price": 420, "ratingsAverage": 5, "ratingsQuantity": 999, "createdAt": "2001-01-01T00:00:00Z", "id": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, 420.0, updated.Price)
	require.Len(t, store.patched, 1)
	assert.Equal(t, []string{"price"}, store.patched[0])

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.RatingsQuantity)
	assert.Equal(t, 3.9, stored.RatingsAverage)
	assert.Equal(t, tours[0].CreatedAt, stored.CreatedAt)
	assert.Equal(t, 420.0, stored.Price)

	_, err = svc.Update(ctx, id.Hex(), []byte(`{"ratingsAverage": 1}`))
	require.NoError(t, err)
	assert.Len(t, store.patched, 1, "nothing writable means no write")

	_, err = svc.Update(ctx, id.Hex(), []byte(`{"name": "The Sea Explorer Deluxe"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "slug"}, store.patched[1])
}
