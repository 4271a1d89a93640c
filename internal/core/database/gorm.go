package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"natours-api/internal/core/config"
)

var ErrUnsupportedDriver = errors.New("database: unsupported sql driver")

// NewGorm opens the SQL store used when principals live in mysql or postgres.
func NewGorm(c config.DB, log *zap.Logger) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch c.Driver {
	case "postgres":
		dial = postgres.Open(c.DSN)
	case "mysql":
		mc, err := MySQLConfig(c.DSN, c.Username, c.Password)
		if err != nil {
			return nil, err
		}
		log.Info("sql dsn", zap.String("driver", c.Driver), zap.String("dsn", MaskDSN(mc)))
		dial = mysql.Open(mc.FormatDSN())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormLevel(c.LogLevel)),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeMin) * time.Minute)
	return db, nil
}

func gormLevel(s string) gormlogger.LogLevel {
	switch s {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// MySQLConfig parses a go-sql-driver DSN or a mysql:// URL into a driver
// config. Non-empty user and pass replace the credentials found in the input.
// Time columns are always parsed into time.Time.
func MySQLConfig(dsn, user, pass string) (*mysqldrv.Config, error) {
	in := strings.TrimPrefix(strings.TrimSpace(dsn), "jdbc:")
	var urlUser, urlPass string
	if strings.HasPrefix(in, "mysql://") {
		u, err := url.Parse(in)
		if err != nil {
			return nil, fmt.Errorf("parse mysql url: %w", err)
		}
		if u.User != nil {
			urlUser = u.User.Username()
			urlPass, _ = u.User.Password()
		}
		in = fmt.Sprintf("tcp(%s)/%s", u.Host, strings.TrimPrefix(u.Path, "/"))
		if u.RawQuery != "" {
			in += "?" + u.RawQuery
		}
	}
	mc, err := mysqldrv.ParseDSN(in)
	if err != nil {
		return nil, err
	}
	if urlUser != "" {
		mc.User, mc.Passwd = urlUser, urlPass
	}
	if user != "" {
		mc.User = user
	}
	if pass != "" {
		mc.Passwd = pass
	}
	mc.ParseTime = true
	return mc, nil
}

// MaskDSN renders mc with the password hidden.
func MaskDSN(mc *mysqldrv.Config) string {
	masked := mc.Clone()
	if masked.Passwd != "" {
		masked.Passwd = "****"
	}
	return masked.FormatDSN()
}
