package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tourRow struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Difficulty string  `json:"difficulty"`
}

func decodeTours(t *testing.T, raw json.RawMessage) []map[string]any {
	t.Helper()
	var data struct {
		Tours []map[string]any `json:"tours"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	return data.Tours
}

func TestListToursFilterSortPaginate(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours?difficulty=easy&sort=-price&limit=2&page=1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, env.Results)
	assert.Equal(t, 2, *env.Results)

	var data struct {
		Tours []tourRow `json:"tours"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Tours, 2)
	assert.Equal(t, "The Park Camper", data.Tours[0].Name)
	assert.Equal(t, "The City Wanderer", data.Tours[1].Name)
	for _, tr := range data.Tours {
		assert.Equal(t, "easy", tr.Difficulty)
	}
}

func TestListToursPageOutOfRange(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours?difficulty=easy&limit=2&page=3"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "This page does not exist", env.Message)
}

func TestListToursRejectsBadQuery(t *testing.T) {
	a := newApp(t)
	for _, q := range []string{"price[ne]=5", "color=red", "fields=name,-price", "sort=color"} {
		w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours?" + q})
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "fail", env.Status, q)
	}
}

func TestListToursProjection(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours?fields=name,price&limit=1"})
	require.Equal(t, http.StatusOK, w.Code)
	tours := decodeTours(t, env.Data)
	require.Len(t, tours, 1)
	assert.ElementsMatch(t, []string{"id", "name", "price"}, keys(tours[0]))
}

func TestTopFiveCheapAlias(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/top-5-cheap"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, *env.Results)
	tours := decodeTours(t, env.Data)
	assert.NotContains(t, keys(tours[0]), "createdAt")
	assert.Equal(t, "The Forest Hiker", tours[0]["name"])
}

func TestTourWritesNeedStaffRole(t *testing.T) {
	a := newApp(t)
	body := `{"name":"The Northern Lights","duration":5,"maxGroupSize":10,"difficulty":"easy","price":990,"summary":"Aurora nights","imageCover":"tour-9-cover.jpg"}`

	w, _ := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/tours", body: body})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/tours", body: body, token: a.token(t, "u-1")})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have permission to perform this action", env.Message)

	w, env = do(t, a.api, call{method: http.MethodPost, path: "/api/v1/tours", body: body, token: a.token(t, "g-1")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Tour tourRow `json:"tour"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.Tour.ID)

	w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/" + created.Tour.ID})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, a.api, call{method: http.MethodDelete, path: "/api/v1/tours/" + created.Tour.ID, token: a.token(t, "a-1")})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/" + created.Tour.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTourInvalidID(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/not-an-id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fail", env.Status)
}

func TestMonthlyPlanRoles(t *testing.T) {
	a := newApp(t)
	w, _ := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/monthly-plan/2021", token: a.token(t, "u-1")})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/monthly-plan/20x1", token: a.token(t, "g-1")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/monthly-plan/2021", token: a.token(t, "g-1")})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToursWithinValidatesInput(t *testing.T) {
	a := newApp(t)
	w, _ := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/tours-within/200/center/34.1,-118.1/unit/ly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/tours-within/200/center/nowhere/unit/mi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/tours-within/200/center/34.1,-118.1/unit/mi"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, *env.Results)
}

func TestReviewsNeedUserRole(t *testing.T) {
	a := newApp(t)
	tourID := a.tours.Items[0].ID.Hex()
	body := `{"review":"Wonderful","rating":5}`

	w, _ := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/tours/" + tourID + "/reviews", body: body, token: a.token(t, "a-1")})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, a.api, call{method: http.MethodPost, path: "/api/v1/tours/" + tourID + "/reviews", body: body, token: a.token(t, "u-1")})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours/" + tourID + "/reviews"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, *env.Results)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestPublicReadsIgnoreBadTokens(t *testing.T) {
	a := newApp(t)
	for _, tok := range []string{"", "garbage", a.token(t, "u-1")} {
		w, _ := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/tours?limit=1", token: tok})
		assert.Equal(t, http.StatusOK, w.Code, "token %q", tok)
		w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/reviews", token: tok})
		assert.Equal(t, http.StatusOK, w.Code, "token %q", tok)
	}
}
