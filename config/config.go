// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", "", "Path to a config.toml file")
	sweepNow   = pflag.Bool("sweep-now", false, "Deletes expired files once at startup")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"s3", "r2", "local", "memory"}
	validDBDrivers    = []string{"sqlite", "postgres"}
	validCacheTypes   = []string{"memory", "redis"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SetDefaults registers every default value. Tests call it directly
// instead of Setup so no config file or flags are needed.
func SetDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "data")

	v.SetDefault("upload.max_size", 100)

	v.SetDefault("security.token_ttl", 30*time.Minute)
	v.SetDefault("security.rate_limit", 20)

	v.SetDefault("slug.alphabet", "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")
	v.SetDefault("slug.length", 8)
	v.SetDefault("slug.max_attempts", 20)

	v.SetDefault("adgate.seconds", 5)

	v.SetDefault("cleanup.schedule", "@every 1h")

	v.SetDefault("cache.type", "memory")

	v.SetDefault("turnstile.enabled", false)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// SECURITY_JWT_SECRET -> security.jwt_secret and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have no default so they're bound explicitly
	for _, key := range []string{
		"security.jwt_secret",
		"admin.username",
		"admin.password",
		"turnstile.secret_token",
		"cache.redis_addr",
		"cache.redis_password",
	} {
		v.BindEnv(key)
	}

	SetDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return Validate()
}

// Validate checks the loaded values. Any error returned here is fatal.
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("security.jwt_secret") == "" {
		return fmt.Errorf("security.jwt_secret is not set. Export SECURITY_JWT_SECRET or add it to config.toml, for example:\n\n%s", genSecret())
	}

	if v.GetDuration("security.token_ttl") < 0 {
		return errors.New("security.token_ttl can't be negative")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	switch v.GetString("storage.type") {
	case "s3":
		if v.GetString("aws.bucket") == "" {
			return errors.New("aws.bucket can't be empty")
		}
		if v.GetString("aws.region") == "" {
			return errors.New("aws.region can't be empty")
		}
	case "r2":
		if v.GetString("cloudflare.account_id") == "" {
			return errors.New("account id can't be empty")
		}
		if v.GetString("cloudflare.access_key_id") == "" {
			return errors.New("account access id can't be empty")
		}
		if v.GetString("cloudflare.secret_access_key") == "" {
			return errors.New("secret access key can't be empty")
		}
		if v.GetString("cloudflare.bucket") == "" {
			return errors.New("bucket can't be empty")
		}
	case "local":
		if v.GetString("storage.local_path") == "" {
			return errors.New("storage.local_path can't be empty")
		}
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("max upload size must be bigger than 0")
	}

	if len(v.GetString("slug.alphabet")) == 0 {
		return errors.New("slug.alphabet can't be empty")
	}

	if v.GetInt("slug.length") <= 0 {
		return errors.New("slug.length must be bigger than 0")
	}

	if v.GetInt("slug.max_attempts") <= 0 {
		return errors.New("slug.max_attempts must be bigger than 0")
	}

	if v.GetInt("adgate.seconds") < 0 {
		return errors.New("adgate.seconds can't be negative")
	}

	if !slices.Contains(validCacheTypes, v.GetString("cache.type")) {
		return errors.New("invalid cache type provided")
	}

	if v.GetString("cache.type") == "redis" && v.GetString("cache.redis_addr") == "" {
		return errors.New("cache.redis_addr can't be empty when using the redis cache")
	}

	if v.GetBool("turnstile.enabled") && v.GetString("turnstile.secret_token") == "" {
		return errors.New("turnstile secret token is missing")
	}

	return nil
}

// MaxUploadSize returns upload.max_size converted from MiB to bytes.
func MaxUploadSize() int64 {
	return v.GetInt64("upload.max_size") << 20
}

// SweepOnStart reports whether --sweep-now was passed.
func SweepOnStart() bool {
	return *sweepNow
}
