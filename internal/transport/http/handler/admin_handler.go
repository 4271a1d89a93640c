package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natours-api/internal/service"
	"natours-api/internal/transport/http/ez"
	resp "natours-api/internal/transport/http/response"
)

// AdminHandler manages principals. The admin engine guards the whole group.
type AdminHandler struct {
	Users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{Users: users}
}

type roleIn struct {
	Role string `json:"role"`
}

func (h *AdminHandler) MountAdmin(admin *gin.RouterGroup) {
	users := ez.New(admin).Group("/users")

	ez.Register(users, ez.Action[struct{}, resp.Listing]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Listing, error) {
			res, err := h.Users.List(c.Request.Context(), c.Request.URL.Query())
			if err != nil {
				return resp.Listing{}, err
			}
			return listing("users", res)
		},
	})

	ez.Register(users, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			u, err := h.Users.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	ez.Register(users, ez.Action[roleIn, gin.H]{
		Method: http.MethodPatch,
		Path:   "/:id/role",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *roleIn) (gin.H, error) {
			u, err := h.Users.SetRole(c.Request.Context(), c.Param("id"), in.Role)
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	ez.Register(users, ez.Action[struct{}, any]{
		Method: http.MethodPost,
		Path:   "/:id/deactivate",
		Binder: ez.BindNone,
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return nil, h.Users.Deactivate(c.Request.Context(), c.Param("id"))
		},
	})
}
