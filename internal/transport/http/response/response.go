package response

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"natours-api/internal/domain"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Listing is a page of items rendered with a results count.
type Listing struct {
	Results int
	Data    any
}

func Success(c *gin.Context, code int, data any) {
	c.JSON(code, Envelope{Status: StatusSuccess, Data: data})
}

func List(c *gin.Context, results int, data any) {
	c.JSON(http.StatusOK, Envelope{Status: StatusSuccess, Results: &results, Data: data})
}

// Write renders out as a listing, a prepared envelope or plain data.
func Write(c *gin.Context, code int, out any) {
	if code == http.StatusNoContent {
		NoContent(c)
		return
	}
	switch v := out.(type) {
	case Listing:
		List(c, v.Results, v.Data)
	case Envelope:
		if v.Status == "" {
			v.Status = StatusText(code)
		}
		c.JSON(code, v)
	default:
		Success(c, code, out)
	}
}

// Token renders a session token next to the principal.
func Token(c *gin.Context, code int, token string, data any) {
	c.JSON(code, Envelope{Status: StatusSuccess, Token: token, Data: data})
}

func Message(c *gin.Context, code int, msg string) {
	c.JSON(code, Envelope{Status: StatusText(code), Message: msg})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// Renderer turns errors into envelopes. Dev adds error detail to the body.
type Renderer struct {
	Log *zap.Logger
	Dev bool
}

// Fail aborts c with the envelope for err.
func (r Renderer) Fail(c *gin.Context, err error) {
	code, safe := HTTPStatus(err)
	body := Envelope{Status: StatusText(code), Message: err.Error()}
	if !safe {
		r.log().Error("unhandled error",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		if !r.Dev {
			body.Message = msgSomethingWrong
		}
	}
	if r.Dev {
		body.Error = detail(err)
	}
	c.AbortWithStatusJSON(code, body)
}

// Panic answers a recovered panic. The stack is only exposed in dev.
func (r Renderer) Panic(c *gin.Context, rec any) {
	body := Envelope{Status: StatusError, Message: msgSomethingWrong}
	if r.Dev {
		body.Error = fmt.Sprint(rec)
		body.Stack = string(debug.Stack())
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

func (r Renderer) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func detail(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Err != nil {
		return de.Message + ": " + de.Err.Error()
	}
	return err.Error()
}

// Errors renders the last error pushed with c.Error once the chain returns.
// Handlers that already wrote a body are left alone.
func Errors(log *zap.Logger, dev bool) gin.HandlerFunc {
	r := Renderer{Log: log, Dev: dev}
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		r.Fail(c, c.Errors.Last().Err)
	}
}
