// Package config - Environment driven configuration for the vision-eval tools.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variable names.
const (
	EnvVisionURL       = "VISION_API_URL"
	EnvVisionAuth      = "VISION_API_AUTH"
	EnvInsecureTLS     = "VISION_INSECURE_TLS"
	EnvTimeout         = "VISION_TIMEOUT"
	EnvRateLimit       = "VISION_RATE_LIMIT"
	EnvBurst           = "VISION_BURST"
	EnvMaxUploadWidth  = "VISION_MAX_WIDTH"
	EnvMaxUploadHeight = "VISION_MAX_HEIGHT"
	EnvMaxResolution   = "VISION_MAX_RESOLUTION"
	EnvWorkers         = "FETCH_WORKERS"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvRedisPassword   = "REDIS_PASSWORD"
	EnvRedisTTL        = "REDIS_TTL"
	EnvAWSRegion       = "AWS_REGION"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFile         = "LOG_FILE"
)

// Config holds every setting the commands read from the environment.
type Config struct {
	// Vision API endpoint receiving multipart uploads.
	VisionURL string `validate:"omitempty,url"`
	// Value of the authorization header, e.g. "Basic ...".
	VisionAuth string
	// Skip TLS certificate verification, for on-premise deployments with self-signed certificates.
	InsecureTLS bool
	// Per request timeout.
	Timeout time.Duration `validate:"gt=0"`
	// Requests per second sent to the API. Zero disables limiting.
	RateLimit float64 `validate:"gte=0"`
	// Token bucket burst size.
	Burst int `validate:"gte=1"`
	// Upload bounds; zero keeps frames at full resolution.
	MaxUploadWidth  int `validate:"gte=0"`
	MaxUploadHeight int `validate:"gte=0"`
	// Named upload bound such as "720p", used when the explicit bounds are unset.
	MaxResolution string
	// Number of concurrent fetch workers.
	Workers int `validate:"gte=1,lte=64"`
	// Redis prediction cache, disabled when empty.
	RedisAddr     string `validate:"omitempty,hostname_port"`
	RedisPassword string
	RedisTTL      time.Duration `validate:"gte=0"`
	// Region for s3:// storage locations.
	AWSRegion string
	LogLevel  string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	LogFile   string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Timeout:   30 * time.Second,
		RateLimit: 0,
		Burst:     1,
		Workers:   2,
		RedisTTL:  24 * time.Hour,
		AWSRegion: "us-east-1",
		LogLevel:  "info",
	}
}

// Load reads an optional .env file then the process environment over the defaults.
//
// Arguments:
//   - envFiles: Dotenv files to load. Missing files are ignored; with none, ".env" is tried.
//
// Returns:
//   - Config: The validated configuration.
//   - error: If a value cannot be parsed or fails validation.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}

	cfg := Default()
	var err error

	cfg.VisionURL = os.Getenv(EnvVisionURL)
	cfg.VisionAuth = os.Getenv(EnvVisionAuth)
	cfg.RedisAddr = os.Getenv(EnvRedisAddr)
	cfg.RedisPassword = os.Getenv(EnvRedisPassword)
	cfg.LogFile = os.Getenv(EnvLogFile)
	cfg.MaxResolution = os.Getenv(EnvMaxResolution)
	if v := os.Getenv(EnvAWSRegion); v != "" {
		cfg.AWSRegion = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if cfg.InsecureTLS, err = envBool(EnvInsecureTLS, cfg.InsecureTLS); err != nil {
		return Config{}, err
	}
	if cfg.Timeout, err = envDuration(EnvTimeout, cfg.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.RedisTTL, err = envDuration(EnvRedisTTL, cfg.RedisTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = envFloat(EnvRateLimit, cfg.RateLimit); err != nil {
		return Config{}, err
	}
	if cfg.Burst, err = envInt(EnvBurst, cfg.Burst); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = envInt(EnvWorkers, cfg.Workers); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadWidth, err = envInt(EnvMaxUploadWidth, cfg.MaxUploadWidth); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadHeight, err = envInt(EnvMaxUploadHeight, cfg.MaxUploadHeight); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "%s", key)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return d, nil
}
