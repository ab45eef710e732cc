package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Image store backends.
const (
	ImageStoreBlob = "blob"
	ImageStoreS3   = "s3"
)

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	Images    ImageConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	LogLevel  slog.Level
}

type ServerConfig struct {
	Port string
	// Env is "development" or "production". Anything other than
	// development gets Secure cookies.
	Env           string
	PublicBaseURL string
	ClientOrigins []string
	// TrustedProxies are peers allowed to set X-Forwarded-For. Empty means
	// the connection address is always the client.
	TrustedProxies []netip.Prefix
}

type AuthConfig struct {
	JWTSecret  string
	BcryptCost int
}

// DatabaseConfig selects the credential store. MongoURI wins over Path when set.
type DatabaseConfig struct {
	Path          string
	MongoURI      string
	MongoDatabase string
}

type ImageConfig struct {
	Store    string
	MaxBytes int
	S3       S3Config
}

type S3Config struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// RedisConfig is optional; an empty Addr means the in-memory rate limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Env, "development")
}

// Load reads configuration from the environment, after loading a .env file
// if one exists. The returned error joins every problem found.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var p parser
	port := getEnv("PORT", "5001")

	cfg := &Config{
		Server: ServerConfig{
			Port:           port,
			Env:            getEnv("APP_ENV", "production"),
			PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
			ClientOrigins:  splitList(getEnv("CLIENT_ORIGINS", "http://localhost:5173")),
			TrustedProxies: p.prefixes("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("JWT_SECRET"),
			BcryptCost: p.int("BCRYPT_COST", 10),
		},
		Database: DatabaseConfig{
			Path:          getEnv("DATABASE_PATH", "chat.db"),
			MongoURI:      os.Getenv("MONGODB_URI"),
			MongoDatabase: getEnv("MONGODB_DATABASE", "chat"),
		},
		Images: ImageConfig{
			Store:    strings.ToLower(getEnv("IMAGE_STORE", ImageStoreBlob)),
			MaxBytes: p.int("MAX_IMAGE_BYTES", 5<<20),
			S3: S3Config{
				Endpoint:      os.Getenv("S3_ENDPOINT"),
				Region:        getEnv("S3_REGION", "us-east-1"),
				Bucket:        os.Getenv("S3_BUCKET"),
				AccessKey:     os.Getenv("S3_ACCESS_KEY"),
				SecretKey:     os.Getenv("S3_SECRET_KEY"),
				PublicBaseURL: os.Getenv("IMAGE_PUBLIC_BASE_URL"),
			},
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.int("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Requests: p.int("RATE_LIMIT_REQUESTS", 10),
			Window:   p.duration("RATE_LIMIT_WINDOW", time.Minute),
		},
		LogLevel: p.level("LOG_LEVEL", slog.LevelInfo),
	}

	if err := errors.Join(append(p.errs, cfg.Validate())...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.Auth.BcryptCost))
	}
	if n, err := strconv.Atoi(c.Server.Port); err != nil || n < 1 || n > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a TCP port, got %q", c.Server.Port))
	}

	switch c.Images.Store {
	case ImageStoreBlob:
	case ImageStoreS3:
		if c.Images.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when IMAGE_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("IMAGE_STORE must be %q or %q, got %q", ImageStoreBlob, ImageStoreS3, c.Images.Store))
	}
	if c.Images.MaxBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_BYTES must be positive"))
	}

	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimit.Window < time.Second {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be at least 1s"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects malformed values instead of silently using defaults.
type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return n
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return d
}

func (p *parser) level(key string, defaultValue slog.Level) slog.Level {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(value)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return l
}

// prefixes parses a comma separated list of CIDRs or bare addresses.
func (p *parser) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, item := range splitList(os.Getenv(key)) {
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				p.errs = append(p.errs, fmt.Errorf("invalid %s entry %q: %w", key, item, err))
				continue
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("invalid %s entry %q: %w", key, item, err))
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}
