package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natours-api/internal/service"
	"natours-api/internal/transport/http/ez"
	mdw "natours-api/internal/transport/http/middleware"
)

// UserHandler serves the signed-in principal's own account.
type UserHandler struct {
	Users *service.UserService
	Guard *mdw.Authenticator
}

func (h *UserHandler) Priority() int { return 20 }

type updateMeIn struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
}

func (h *UserHandler) MountAPI(api *gin.RouterGroup) {
	me := ez.New(api).Group("/users", h.Guard.Protect())

	ez.Register(me, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			p, _ := mdw.CurrentPrincipal(c)
			u, err := h.Users.Me(c.Request.Context(), p.ID)
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	ez.Register(me, ez.Action[updateMeIn, gin.H]{
		Method: http.MethodPatch,
		Path:   "/updateMe",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *updateMeIn) (gin.H, error) {
			p, _ := mdw.CurrentPrincipal(c)
			u, err := h.Users.UpdateMe(c.Request.Context(), p.ID, service.UpdateMeInput{
				Name:            in.Name,
				Email:           in.Email,
				Password:        in.Password,
				PasswordConfirm: in.PasswordConfirm,
			})
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	ez.Register(me, ez.Action[struct{}, any]{
		Method: http.MethodDelete,
		Path:   "/deleteMe",
		Binder: ez.BindNone,
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			p, _ := mdw.CurrentPrincipal(c)
			return nil, h.Users.DeleteMe(c.Request.Context(), p.ID)
		},
	})
}
