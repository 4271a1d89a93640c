package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natours-api/internal/domain"
	"natours-api/internal/service"
	"natours-api/internal/transport/http/ez"
	mdw "natours-api/internal/transport/http/middleware"
	resp "natours-api/internal/transport/http/response"
)

type ReviewHandler struct {
	Reviews *service.ReviewService
	Guard   *mdw.Authenticator
}

func (h *ReviewHandler) Priority() int { return 40 }

type reviewIn struct {
	Review string `json:"review"`
	Rating int    `json:"rating"`
	Tour   string `json:"tour"`
}

func createReview(c *gin.Context, reviews *service.ReviewService, in *reviewIn) (gin.H, error) {
	p, _ := mdw.CurrentPrincipal(c)
	r, err := reviews.Create(c.Request.Context(), p, service.ReviewInput{
		Review: in.Review,
		Rating: in.Rating,
		Tour:   in.Tour,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"review": r}, nil
}

func (h *ReviewHandler) MountAPI(api *gin.RouterGroup) {
	reviews := ez.New(api).Group("/reviews")
	reader := []gin.HandlerFunc{h.Guard.Optional()}

	ez.Register(reviews, ez.Action[struct{}, resp.Listing]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Listing, error) {
			res, err := h.Reviews.List(c.Request.Context(), "", c.Request.URL.Query())
			if err != nil {
				return resp.Listing{}, err
			}
			return listing("reviews", res)
		},
	})

	ez.Register(reviews, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Use:    reader,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			r, err := h.Reviews.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{"review": r}, nil
		},
	})

	ez.Register(reviews, ez.Action[reviewIn, gin.H]{
		Method: http.MethodPost,
		Path:   "",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Use:    []gin.HandlerFunc{h.Guard.Protect(), mdw.Authorize(domain.RoleUser)},
		Handler: func(c *gin.Context, in *reviewIn) (gin.H, error) {
			return createReview(c, h.Reviews, in)
		},
	})
}
