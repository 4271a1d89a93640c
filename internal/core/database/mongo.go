package database

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"natours-api/internal/core/config"
)

const passwordPlaceholder = "<PASSWORD>"

// MongoURI substitutes the <PASSWORD> placeholder with the escaped password.
func MongoURI(uri, password string) string {
	if password == "" {
		return uri
	}
	return strings.ReplaceAll(uri, passwordPlaceholder, url.QueryEscape(password))
}

// ConnectMongo dials and pings the cluster, returning the configured database.
func ConnectMongo(ctx context.Context, c config.Mongo, log *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	timeout := time.Duration(c.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(MongoURI(c.URI, c.Password)).
		SetServerSelectionTimeout(timeout).
		SetAppName("natours-api")
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	log.Info("mongo connected", zap.String("database", c.Database))
	return client, client.Database(c.Database), nil
}
