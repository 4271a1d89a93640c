package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"natours-api/internal/core/config"
	"natours-api/internal/domain"
	mdw "natours-api/internal/transport/http/middleware"
	resp "natours-api/internal/transport/http/response"
)

type Options struct {
	Name           string
	Dev            bool
	CORSOrigins    []string
	MaxInFlight    int64
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

func OptionsFrom(app config.App) Options {
	return Options{
		Name:           app.Name,
		Dev:            !app.Production(),
		CORSOrigins:    app.HTTP.CORSOrigins,
		MaxInFlight:    app.HTTP.MaxInFlight,
		MaxBodyBytes:   app.HTTP.MaxBodyBytes,
		RequestTimeout: time.Duration(app.HTTP.RequestTimeoutSec) * time.Second,
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", mdw.KeyRequestID)
	c.ExposeHeaders = []string{mdw.KeyRequestID}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// NewRouter builds an engine with the shared middleware chain. Logging and
// metrics wrap recovery so they still see panicking requests; the error
// renderer sits inside them so they observe the final status.
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	r := gin.New()
	r.Use(
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.AccessLog(l),
		mdw.Recovery(l, o.Dev),
		resp.Errors(l, o.Dev),
		cors.New(corsConfig(o.CORSOrigins)),
	)
	if o.MaxInFlight > 0 {
		r.Use(mdw.ConcurrencyLimit(o.MaxInFlight, o.RequestTimeout))
	}
	if o.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(o.MaxBodyBytes))
	}
	if o.RequestTimeout > 0 {
		r.Use(mdw.Timeout(o.RequestTimeout))
	}
	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(domain.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)))
	})
	r.GET("/health", func(c *gin.Context) { resp.Success(c, http.StatusOK, gin.H{"name": o.Name}) })
	return r
}

func StartHTTP(srv *http.Server, l *zap.Logger) error {
	l.Info("http starting", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration, errLog *log.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       rt,
		ReadHeaderTimeout: rt,
		WriteTimeout:      wt,
		IdleTimeout:       it,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          errLog,
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// Serve runs srv until SIGINT or SIGTERM, then shuts it down gracefully.
func Serve(srv *http.Server, l *zap.Logger, name string, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		if err := StartHTTP(srv, l.With(zap.String("server", name))); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("%s start failed: %w", name, err)
		}
		return nil
	case sig := <-quit:
		l.Info("shutting down", zap.String("server", name), zap.String("signal", sig.String()))
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(ctx)
}
