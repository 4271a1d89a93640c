package devdata

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours-api/internal/domain"
)

const toursJSON = `[{
	"_id": "5c88fa8cf4afda39709c2955",
	"name": "The Sea Explorer",
	"duration": 7,
	"maxGroupSize": 15,
	"difficulty": "medium",
	"ratingsAverage": 4.8,
	"price": 497,
	"summary": "Exploring the jaw-dropping US east coast by foot and by boat",
	"imageCover": "tour-2-cover.jpg",
	"startDates": ["2021-06-19,10:00", "2021-07-20T10:00:00Z"],
	"startLocation": {"coordinates": [-80.185942, 25.774772], "address": "301 Biscayne Blvd, Miami, FL 33132, USA"},
	"guides": ["5c8a22c62f8fb814b56fa18b"],
	"secretTour": true
}]`

const usersJSON = `[
	{"_id": "5c8a1d5b0190b214360dc057", "name": "Jonas", "email": "Admin@Natours.io", "role": "admin", "password": "$2a$12$Q0grHjH9PXc6SxivC8m12.2mZJ9BbKcgFpwSG4Y1ZEII8HJVzWeyS"},
	{"name": "Lourdes", "email": "loulou@example.com", "password": "test1234", "active": false}
]`

const reviewsJSON = `[{
	"_id": "5c8a34ed14eb5c17645c9108",
	"review": "Cras mollis nisi parturient mi nec aliquet suspendisse sagittis eros condimentum.",
	"rating": 5,
	"tour": "5c88fa8cf4afda39709c2955",
	"user": "5c8a1d5b0190b214360dc057"
}]`

func fixtures(tours, users, reviews string) fstest.MapFS {
	return fstest.MapFS{
		ToursFile:   {Data: []byte(tours)},
		UsersFile:   {Data: []byte(users)},
		ReviewsFile: {Data: []byte(reviews)},
	}
}

func fakeHash(pw string) (string, error) { return "hashed:" + pw, nil }

func TestLoad(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ds, err := Load(fixtures(toursJSON, usersJSON, reviewsJSON), fakeHash, now)
	require.NoError(t, err)

	require.Len(t, ds.Tours, 1)
	tour := ds.Tours[0]
	assert.Equal(t, "5c88fa8cf4afda39709c2955", tour.ID.Hex())
	assert.Equal(t, "the-sea-explorer", tour.Slug)
	assert.True(t, tour.SecretTour)
	assert.Equal(t, now, tour.CreatedAt)
	require.Len(t, tour.StartDates, 2)
	assert.Equal(t, time.Date(2021, 6, 19, 10, 0, 0, 0, time.UTC), tour.StartDates[0])
	assert.Equal(t, time.Date(2021, 7, 20, 10, 0, 0, 0, time.UTC), tour.StartDates[1])
	require.NotNil(t, tour.StartLocation)
	assert.Equal(t, "Point", tour.StartLocation.Type)

	require.Len(t, ds.Principals, 2)
	admin, lou := ds.Principals[0], ds.Principals[1]
	assert.Equal(t, "5c8a1d5b0190b214360dc057", admin.ID)
	assert.Equal(t, "admin@natours.io", admin.Email)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Equal(t, "$2a$12$Q0grHjH9PXc6SxivC8m12.2mZJ9BbKcgFpwSG4Y1ZEII8HJVzWeyS", admin.PasswordHash)
	assert.True(t, admin.Active)

	assert.NotEmpty(t, lou.ID)
	assert.Equal(t, domain.RoleUser, lou.Role)
	assert.Equal(t, "hashed:test1234", lou.PasswordHash)
	assert.False(t, lou.Active)

	require.Len(t, ds.Reviews, 1)
	assert.Equal(t, tour.ID, ds.Reviews[0].Tour)
	assert.Equal(t, admin.ID, ds.Reviews[0].User)
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad date":   fixtures(`[{"name":"The Sea Explorer","duration":7,"maxGroupSize":15,"difficulty":"medium","price":497,"summary":"s","imageCover":"c.jpg","startDates":["June 19"]}]`, `[]`, `[]`),
		"bad tour":   fixtures(`[{"name":"Short"}]`, `[]`, `[]`),
		"bad role":   fixtures(`[]`, `[{"name":"x","email":"x@example.com","role":"owner","password":"pw"}]`, `[]`),
		"bad review": fixtures(`[]`, `[]`, `[{"review":"ok","rating":9,"tour":"5c88fa8cf4afda39709c2955","user":"u"}]`),
		"bad id":     fixtures(`[]`, `[]`, `[{"review":"ok","rating":4,"tour":"nope","user":"u"}]`),
		"bad json":   fixtures(`{`, `[]`, `[]`),
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(fsys, fakeHash, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(fstest.MapFS{ToursFile: {Data: []byte(`[]`)}}, fakeHash, time.Now())
	assert.Error(t, err)
}
