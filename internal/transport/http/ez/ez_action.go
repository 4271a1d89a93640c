// Package ez registers typed gin actions: bind the input, run the handler,
// render the envelope. Errors are pushed to the gin context and rendered by
// response.Errors.
package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"natours-api/internal/domain"
	resp "natours-api/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// Group returns an EZ rooted at path with extra middleware.
func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...)}
}

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // handler reads c.Param / c.Query itself
)

// Action is one route. I is the bound input, O the payload placed under data
// (or a resp.Listing).
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Status  int               // defaults to 200
	Use     []gin.HandlerFunc // route middleware, e.g. Protect then Authorize
	Handler func(c *gin.Context, in *I) (O, error)
}

func Register[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			_ = c.Error(err)
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		resp.Write(c, status, out)
	}
	handlers := append(append([]gin.HandlerFunc{}, a.Use...), h)

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default:
		e.g.POST(a.Path, handlers...)
	}
}

func bind(c *gin.Context, b Binder, in any) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
	case BindQuery:
		err = c.ShouldBindQuery(in)
	default:
		return nil
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return domain.Wrap(err, domain.KindValidation, "Invalid input data. "+err.Error())
}
