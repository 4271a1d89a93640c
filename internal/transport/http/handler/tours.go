package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"natours-api/internal/aggregation"
	"natours-api/internal/domain"
	"natours-api/internal/query"
	"natours-api/internal/service"
	"natours-api/internal/transport/http/ez"
	mdw "natours-api/internal/transport/http/middleware"
	resp "natours-api/internal/transport/http/response"
)

// TourHandler serves tours, their statistics and their nested reviews.
type TourHandler struct {
	Tours   *service.TourService
	Reviews *service.ReviewService
	Guard   *mdw.Authenticator
}

func (h *TourHandler) Priority() int { return 30 }

// listing renders a query result with its projection applied.
func listing[T any](key string, res query.Result[T]) (resp.Listing, error) {
	shaped, err := query.Shape(res.Items, res.Spec.Projection)
	if err != nil {
		return resp.Listing{}, err
	}
	return resp.Listing{Results: len(res.Items), Data: gin.H{key: shaped}}, nil
}

func (h *TourHandler) list(c *gin.Context, v url.Values) (resp.Listing, error) {
	res, err := h.Tours.List(c.Request.Context(), v)
	if err != nil {
		return resp.Listing{}, err
	}
	return listing("tours", res)
}

func (h *TourHandler) MountAPI(api *gin.RouterGroup) {
	tours := ez.New(api).Group("/tours")
	staff := []gin.HandlerFunc{h.Guard.Protect(), mdw.Authorize(domain.RoleAdmin, domain.RoleLeadGuide)}
	reader := []gin.HandlerFunc{h.Guard.Optional()}

	ez.Register(tours, ez.Action[struct{}, resp.Listing]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Listing, error) {
			return h.list(c, c.Request.URL.Query())
		},
	})

	ez.Register(tours, ez.Action[struct{}, resp.Listing]{
		Method: http.MethodGet,
		Path:   "/top-5-cheap",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Listing, error) {
			return h.list(c, service.AliasTopTours(c.Request.URL.Query()))
		},
	})

	ez.Register(tours, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/tour-stats",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			var minRating float64
			if raw := c.Query("minRating"); raw != "" {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil || v < 1 || v > 5 {
					return nil, domain.Validation("minRating must be a number between 1 and 5")
				}
				minRating = v
			}
			stats, err := h.Tours.Stats(c.Request.Context(), minRating)
			if err != nil {
				return nil, err
			}
			return gin.H{"stats": stats}, nil
		},
	})

	ez.Register(tours, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/monthly-plan/:year",
		Binder: ez.BindNone,
		Use: []gin.HandlerFunc{
			h.Guard.Protect(),
			mdw.Authorize(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide),
		},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			year, err := aggregation.ParseYear(c.Param("year"))
			if err != nil {
				return nil, err
			}
			plan, err := h.Tours.MonthlyPlan(c.Request.Context(), year)
			if err != nil {
				return nil, err
			}
			return gin.H{"plan": plan}, nil
		},
	})

	ez.Register(tours, ez.Action[struct{}, resp.Listing]{
		Method: http.MethodGet,
		Path:   "/tours-within/:distance/center/:latlng/unit/:unit",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Listing, error) {
			distance, err := aggregation.ParseDistance(c.Param("distance"))
			if err != nil {
				return resp.Listing{}, err
			}
			lat, lng, err := aggregation.ParseCenter(c.Param("latlng"))
			if err != nil {
				return resp.Listing{}, err
			}
			found, err := h.Tours.Within(c.Request.Context(), distance, lat, lng, aggregation.Unit(c.Param("unit")))
			if err != nil {
				return resp.Listing{}, err
			}
			return resp.Listing{Results: len(found), Data: gin.H{"tours": found}}, nil
		},
	})

	ez.Register(tours, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			t, err := h.Tours.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{"tour": t}, nil
		},
	})

	ez.Register(tours, ez.Action[domain.Tour, gin.H]{
		Method: http.MethodPost,
		Path:   "",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Use:    staff,
		Handler: func(c *gin.Context, in *domain.Tour) (gin.H, error) {
			t, err := h.Tours.Create(c.Request.Context(), in)
			if err != nil {
				return nil, err
			}
			return gin.H{"tour": t}, nil
		},
	})

	ez.Register(tours, ez.Action[struct{}, gin.H]{
		Method: http.MethodPatch,
		Path:   "/:id",
		Binder: ez.BindNone,
		Use:    staff,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			patch, err := c.GetRawData()
			if err != nil {
				return nil, err
			}
			t, err := h.Tours.Update(c.Request.Context(), c.Param("id"), patch)
			if err != nil {
				return nil, err
			}
			return gin.H{"tour": t}, nil
		},
	})

	ez.Register(tours, ez.Action[struct{}, any]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: ez.BindNone,
		Status: http.StatusNoContent,
		Use:    staff,
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return nil, h.Tours.Delete(c.Request.Context(), c.Param("id"))
		},
	})

	h.mountTourReviews(tours, reader)
}

func (h *TourHandler) mountTourReviews(tours ez.EZ, reader []gin.HandlerFunc) {
	ez.Register(tours, ez.Action[struct{}, resp.Listing]{
		Method: http.MethodGet,
		Path:   "/:id/reviews",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Listing, error) {
			res, err := h.Reviews.List(c.Request.Context(), c.Param("id"), c.Request.URL.Query())
			if err != nil {
				return resp.Listing{}, err
			}
			return listing("reviews", res)
		},
	})

	ez.Register(tours, ez.Action[reviewIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/:id/reviews",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Use:    []gin.HandlerFunc{h.Guard.Protect(), mdw.Authorize(domain.RoleUser)},
		Handler: func(c *gin.Context, in *reviewIn) (gin.H, error) {
			in.Tour = c.Param("id")
			return createReview(c, h.Reviews, in)
		},
	})
}
