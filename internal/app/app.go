// Package app wires configuration into stores, services and HTTP handlers.
// cmd/api, cmd/admin and cmd/natoursctl share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"natours-api/internal/aggregation"
	"natours-api/internal/core/auth"
	"natours-api/internal/core/cache"
	"natours-api/internal/core/config"
	"natours-api/internal/core/database"
	"natours-api/internal/core/events"
	"natours-api/internal/core/mailer"
	"natours-api/internal/repo"
	"natours-api/internal/service"
	"natours-api/internal/transport/http/handler"
	mdw "natours-api/internal/transport/http/middleware"
	"natours-api/internal/transport/http/router"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger

	Mongo *mongo.Client
	DB    *mongo.Database
	SQL   *gorm.DB

	Principals service.PrincipalStore
	Tours      *repo.TourMongo
	Reviews    *repo.ReviewMongo

	Cache  *cache.Cache
	Events events.Publisher
	Mailer service.Mailer

	Hasher *auth.Hasher
	Tokens *auth.TokenService
	Guard  *mdw.Authenticator

	Auth        *service.AuthService
	Resets      *service.PasswordResetFlow
	Users       *service.UserService
	TourService *service.TourService
	ReviewSvc   *service.ReviewService
}

// New connects every backing service named by cfg. Optional ones (redis,
// amqp, smtp) degrade to local fallbacks when unset.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	client, db, err := database.ConnectMongo(ctx, cfg.Mongo, log)
	if err != nil {
		return nil, err
	}
	a.Mongo, a.DB = client, db

	if err := a.openPrincipals(); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	a.Tours = repo.NewTourMongo(db, log)
	a.Reviews = repo.NewReviewMongo(db)

	a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	a.Events = events.New(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	if a.Mailer, err = newMailer(cfg.Mail, log); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	a.wire()
	return a, nil
}

func (a *App) openPrincipals() error {
	switch a.Config.Store.Principals {
	case "sql":
		g, err := database.NewGorm(a.Config.DB, a.Log)
		if err != nil {
			return err
		}
		a.SQL = g
		store := repo.NewPrincipalGorm(g)
		if a.Config.DB.AutoMigrate {
			if err := store.AutoMigrate(); err != nil {
				return fmt.Errorf("automigrate principals: %w", err)
			}
			a.Log.Info("automigrate done")
		}
		a.Principals = store
	default:
		a.Principals = repo.NewPrincipalMongo(a.DB)
	}
	a.Log.Info("principal store ready", zap.String("backend", a.Config.Store.Principals))
	return nil
}

func newMailer(c config.Mail, log *zap.Logger) (service.Mailer, error) {
	if c.Host == "" {
		log.Warn("mail.host is empty, reset mails are only logged")
		return mailer.Log{L: log}, nil
	}
	m, err := mailer.NewSMTP(c)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// wire builds the services over the opened stores.
func (a *App) wire() {
	cfg := a.Config
	a.Hasher = auth.NewHasher(cfg.Auth.BcryptCost)
	a.Tokens = auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	a.Guard = &mdw.Authenticator{Tokens: a.Tokens, Principals: a.Principals}

	a.Auth = &service.AuthService{
		Principals: a.Principals,
		Hasher:     a.Hasher,
		Tokens:     a.Tokens,
		Events:     a.Events,
		Log:        a.Log,
	}
	a.Resets = &service.PasswordResetFlow{
		Principals: a.Principals,
		Resets:     auth.NewResetTokenService(cfg.Auth.ResetTTL()),
		Hasher:     a.Hasher,
		Tokens:     a.Tokens,
		Mailer:     a.Mailer,
		Events:     a.Events,
		Log:        a.Log,
	}
	a.Users = &service.UserService{Principals: a.Principals, Events: a.Events, Log: a.Log}
	a.TourService = &service.TourService{
		Tours:    a.Tours,
		Planner:  aggregation.NewPlanner(),
		Cache:    a.Cache,
		CacheTTL: time.Duration(cfg.Redis.StatsTTLSec) * time.Second,
		Log:      a.Log,
	}
	a.ReviewSvc = &service.ReviewService{Reviews: a.Reviews, Tours: a.Tours, Derived: a.TourService, Log: a.Log}
}

// Registry returns every HTTP handler module. Engines mount the part they serve.
func (a *App) Registry() *router.Registry {
	return router.NewRegistry(
		&handler.AuthHandler{
			Auth:   a.Auth,
			Resets: a.Resets,
			Guard:  a.Guard,
			Cookie: handler.CookieOptions{
				MaxAge: a.Config.JWT.CookieMaxAge(),
				Secure: a.Config.App.Production(),
			},
			ResetURLBase: a.Config.Auth.ResetURLBase,
			Log:          a.Log,
		},
		&handler.UserHandler{Users: a.Users, Guard: a.Guard},
		&handler.TourHandler{Tours: a.TourService, Reviews: a.ReviewSvc, Guard: a.Guard},
		&handler.ReviewHandler{Reviews: a.ReviewSvc, Guard: a.Guard},
		handler.NewAdminHandler(a.Users),
	)
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.SQL != nil {
		if sqlDB, err := a.SQL.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.Mongo != nil {
		errs = append(errs, a.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
