package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "natours-api/internal/transport/http/response"
)

// ConcurrencyLimit admits at most n requests at a time. A request waits up
// to wait for a slot (until it is cancelled when wait is 0) and then gets 503.
func ConcurrencyLimit(n int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(n)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if wait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, wait)
			defer cancel()
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			c.Header("Retry-After", "1")
			resp.Message(c, http.StatusServiceUnavailable, "Server busy, try again later")
			c.Abort()
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// MaxBodyBytes caps the request body. Reads past n fail with
// *http.MaxBytesError, which the error renderer answers with 413.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// Timeout gives every request a deadline. Handlers see it through the
// request context; a handler that ran out of time without answering gets 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			resp.Message(c, http.StatusGatewayTimeout, "Request timed out")
			c.Abort()
		}
	}
}
