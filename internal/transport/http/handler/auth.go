package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"natours-api/internal/domain"
	"natours-api/internal/service"
	"natours-api/internal/transport/http/ez"
	mdw "natours-api/internal/transport/http/middleware"
	resp "natours-api/internal/transport/http/response"
)

const (
	msgTokenSent     = "Token sent to email!"
	loggedOutValue   = "loggedout"
	loggedOutSeconds = 10
)

// CookieOptions shapes the session cookie.
type CookieOptions struct {
	MaxAge int
	Secure bool
}

func (o CookieOptions) set(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     mdw.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AuthHandler serves signup, login and the password flows.
type AuthHandler struct {
	Auth   *service.AuthService
	Resets *service.PasswordResetFlow
	Guard  *mdw.Authenticator
	Cookie CookieOptions
	// ResetURLBase prefixes the mailed reset link. Empty derives it from the request.
	ResetURLBase string
	Log          *zap.Logger
}

func (h *AuthHandler) Priority() int { return 10 }

// sendSession sets the cookie and renders the token with the principal.
func (h *AuthHandler) sendSession(c *gin.Context, s *service.Session) resp.Envelope {
	h.Cookie.set(c, s.Token, h.Cookie.MaxAge)
	return resp.Envelope{Token: s.Token, Data: gin.H{"user": s.Principal}}
}

type signupIn struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Photo           string `json:"photo"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotIn struct {
	Email string `json:"email"`
}

type resetIn struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type updatePasswordIn struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (h *AuthHandler) MountAPI(api *gin.RouterGroup) {
	users := ez.New(api).Group("/users")

	ez.Register(users, ez.Action[signupIn, resp.Envelope]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *signupIn) (resp.Envelope, error) {
			s, err := h.Auth.Signup(c.Request.Context(), service.SignupInput{
				Name:            in.Name,
				Email:           in.Email,
				Photo:           in.Photo,
				Password:        in.Password,
				PasswordConfirm: in.PasswordConfirm,
			})
			if err != nil {
				mdw.RecordAuth("signup", mdw.Rejected.String())
				return resp.Envelope{}, err
			}
			mdw.RecordAuth("signup", mdw.Authenticated.String())
			return h.sendSession(c, s), nil
		},
	})

	ez.Register(users, ez.Action[loginIn, resp.Envelope]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (resp.Envelope, error) {
			s, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				mdw.RecordAuth("login", mdw.Rejected.String())
				return resp.Envelope{}, err
			}
			mdw.RecordAuth("login", mdw.Authenticated.String())
			return h.sendSession(c, s), nil
		},
	})

	ez.Register(users, ez.Action[struct{}, any]{
		Method: http.MethodGet,
		Path:   "/logout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			h.Cookie.set(c, loggedOutValue, loggedOutSeconds)
			return nil, nil
		},
	})

	ez.Register(users, ez.Action[forgotIn, resp.Envelope]{
		Method:  http.MethodPost,
		Path:    "/forgotPassword",
		Binder:  ez.BindJSON,
		Handler: h.forgotPassword,
	})

	ez.Register(users, ez.Action[resetIn, resp.Envelope]{
		Method: http.MethodPatch,
		Path:   "/resetPassword/:token",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *resetIn) (resp.Envelope, error) {
			s, err := h.Resets.ConsumeReset(c.Request.Context(), c.Param("token"), in.Password, in.PasswordConfirm)
			if err != nil {
				mdw.RecordAuth("reset", mdw.Rejected.String())
				return resp.Envelope{}, err
			}
			mdw.RecordAuth("reset", mdw.Authenticated.String())
			return h.sendSession(c, s), nil
		},
	})

	ez.Register(users, ez.Action[updatePasswordIn, resp.Envelope]{
		Method: http.MethodPatch,
		Path:   "/updateMyPassword",
		Binder: ez.BindJSON,
		Use:    []gin.HandlerFunc{h.Guard.Protect()},
		Handler: func(c *gin.Context, in *updatePasswordIn) (resp.Envelope, error) {
			p, _ := mdw.CurrentPrincipal(c)
			s, err := h.Auth.UpdatePassword(c.Request.Context(), p.ID, in.PasswordCurrent, in.Password, in.PasswordConfirm)
			if err != nil {
				return resp.Envelope{}, err
			}
			return h.sendSession(c, s), nil
		},
	})
}

// forgotPassword answers the same way whether or not the address is known.
func (h *AuthHandler) forgotPassword(c *gin.Context, in *forgotIn) (resp.Envelope, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return resp.Envelope{}, domain.Validation("Please provide your email")
	}
	err := h.Resets.RequestReset(c.Request.Context(), email, h.resetURLBase(c))
	switch {
	case errors.Is(err, domain.ErrUnknownEmail):
		h.log().Debug("password reset for unknown email")
	case err != nil:
		return resp.Envelope{}, err
	}
	return resp.Envelope{Message: msgTokenSent}, nil
}

func (h *AuthHandler) resetURLBase(c *gin.Context) string {
	if h.ResetURLBase != "" {
		return strings.TrimRight(h.ResetURLBase, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/api/v1/users/resetPassword"
}

func (h *AuthHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
