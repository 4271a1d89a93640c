package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	MaxInFlight       int64
	MaxBodyBytes      int64
	CORSOrigins       []string `mapstructure:"corsOrigins"`
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

func (a App) Production() bool { return a.Env == "production" || a.Env == "prod" }

type Log struct {
	Level  string
	JSON   bool
	File   string
	Rotate Rotate
}

type Rotate struct {
	MaxSizeMB  int `mapstructure:"maxSizeMB"`
	MaxBackups int `mapstructure:"maxBackups"`
	MaxAgeDays int `mapstructure:"maxAgeDays"`
	Compress   bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int `mapstructure:"accessTokenTTLMin"`
	CookieExpiresDays int `mapstructure:"cookieExpiresDays"`
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

func (j JWT) CookieMaxAge() int { return j.CookieExpiresDays * 24 * 60 * 60 }

type Auth struct {
	BcryptCost       int    `mapstructure:"bcryptCost"`
	ResetTokenTTLMin int    `mapstructure:"resetTokenTTLMin"`
	ResetURLBase     string `mapstructure:"resetURLBase"`
}

func (a Auth) ResetTTL() time.Duration { return time.Duration(a.ResetTokenTTLMin) * time.Minute }

type Mongo struct {
	URI        string
	Password   string
	Database   string
	TimeoutSec int `mapstructure:"timeoutSec"`
}

type Store struct {
	// Principals selects the principal backend: "mongo" or "sql".
	Principals string
}

type Redis struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	StatsTTLSec int    `mapstructure:"statsTTLSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string `mapstructure:"fromName"`
	TLS      bool
}

type AMQP struct {
	URL      string `mapstructure:"url"`
	Exchange string
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	Auth  Auth
	Mongo Mongo
	Store Store
	DB    DB
	Redis Redis `mapstructure:"redis"`
	Mail  Mail
	AMQP  AMQP `mapstructure:"amqp"`
}

const minSecretLen = 32

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("jwt.secret must be at least %d characters", minSecretLen))
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		errs = append(errs, errors.New("jwt.accessTokenTTLMin must be positive"))
	}
	switch c.Store.Principals {
	case "mongo", "sql":
	default:
		errs = append(errs, fmt.Errorf("store.principals must be mongo or sql, got %q", c.Store.Principals))
	}
	if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
		errs = append(errs, fmt.Errorf("mongo.uri is not a mongodb URI: %q", c.Mongo.URI))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "natours")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 3000)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.requestTimeoutSec", 10)
	v.SetDefault("app.http.maxInFlight", 256)
	v.SetDefault("app.http.maxBodyBytes", 10<<10)
	v.SetDefault("app.http.corsOrigins", []string{"*"})
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 3001)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.rotate.maxSizeMB", 100)
	v.SetDefault("log.rotate.maxBackups", 7)
	v.SetDefault("log.rotate.maxAgeDays", 14)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "natours")
	v.SetDefault("jwt.accessTokenTTLMin", 90*24*60)
	v.SetDefault("jwt.cookieExpiresDays", 90)

	v.SetDefault("auth.bcryptCost", 12)
	v.SetDefault("auth.resetTokenTTLMin", 10)
	v.SetDefault("auth.resetURLBase", "http://127.0.0.1:3000/api/v1/users/resetPassword")

	v.SetDefault("mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.database", "natours")
	v.SetDefault("mongo.timeoutSec", 10)

	v.SetDefault("store.principals", "mongo")

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", false)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.statsTTLSec", 300)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "hello@natours.io")
	v.SetDefault("mail.fromName", "Natours")
	v.SetDefault("mail.tls", true)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "natours.auth")
}

// Read loads the YAML file at path (CONFIG_PATH or the local sample when
// empty) with APP_ environment overrides, then validates it.
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Load is Read for process entry points: any failure is fatal.
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatal(err)
	}
	return c
}
