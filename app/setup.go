// Package app wires the HTTP server together
package app

import (
	"bitwise74/dropgate/aws"
	"bitwise74/dropgate/config"
	"bitwise74/dropgate/db"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/service"
	"bitwise74/dropgate/internal/storage"
	"bitwise74/dropgate/pkg/middleware"
	"bitwise74/dropgate/pkg/security"
	"context"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const adPath = "/ad"

// NewDeps builds every dependency from the loaded configuration.
func NewDeps(ctx context.Context) (*internal.Deps, error) {
	d := &internal.Deps{
		Now:           time.Now,
		Argon:         security.NewArgon(),
		MaxUploadSize: config.MaxUploadSize(),
		AdGate: &service.AdGate{
			Path:    adPath,
			Seconds: viper.GetInt("adgate.seconds"),
		},
	}

	conn, err := db.New(viper.GetString("db.driver"), viper.GetString("db.dsn"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = conn

	store, err := newObjectStore(ctx)
	if err != nil {
		return nil, err
	}
	d.Store = store

	tokens, err := security.NewTokenIssuer(viper.GetString("security.jwt_secret"), viper.GetDuration("security.token_ttl"), d.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer, %w", err)
	}
	d.Tokens = tokens

	d.Registry = service.NewRegistry(d.DB, d.Store, service.SlugConfig{
		Alphabet:    viper.GetString("slug.alphabet"),
		Length:      viper.GetInt("slug.length"),
		MaxAttempts: viper.GetInt("slug.max_attempts"),
	}, d.Now)

	d.Admins = service.NewAdmins(d.DB, d.Argon, d.Now)

	if user, pass := viper.GetString("admin.username"), viper.GetString("admin.password"); user != "" && pass != "" {
		if err := d.Admins.EnsureAdmin(ctx, user, pass); err != nil {
			return nil, fmt.Errorf("failed to bootstrap admin, %w", err)
		}
	} else {
		zap.L().Warn("admin.username or admin.password not set, no admin account will be created")
	}

	return d, nil
}

func newObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	switch t := viper.GetString("storage.type"); t {
	case "s3", "r2":
		var (
			c   *aws.S3Client
			err error
		)

		if t == "s3" {
			c, err = aws.NewS3(ctx)
		} else {
			c, err = aws.NewR2(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s client, %w", t, err)
		}

		return storage.NewS3Store(c.C, *c.Bucket), nil
	case "local":
		s, err := storage.NewLocalStore(viper.GetString("storage.local_path"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage, %w", err)
		}

		return s, nil
	case "memory":
		zap.L().Warn("Using in-memory object storage, uploads won't survive a restart")

		return storage.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", t)
	}
}

// NewOptions reads the router options from the loaded configuration.
func NewOptions(ctx context.Context) (Options, error) {
	o := Options{
		CORSOrigins: viper.GetStringSlice("host.cors_origins"),
		CacheTTL:    time.Minute,
		Turnstile: middleware.TurnstileConfig{
			Enabled: viper.GetBool("turnstile.enabled"),
			Secret:  viper.GetString("turnstile.secret_token"),
		},
	}

	if rps := viper.GetInt("security.rate_limit"); rps > 0 {
		o.RateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: rps,
			Burst:             rps * 2,
		})
	}

	if viper.GetString("cache.type") == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     viper.GetString("cache.redis_addr"),
			Password: viper.GetString("cache.redis_password"),
			DB:       viper.GetInt("cache.redis_db"),
		})

		if err := client.Ping(ctx).Err(); err != nil {
			o.Close()
			return Options{}, fmt.Errorf("failed to connect to redis, %w", err)
		}

		o.Cache = persist.NewRedisStore(client)
	}

	return o, nil
}
