package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"donorhub/pkg/platform/middleware/metadata"
	pstrings "donorhub/pkg/platform/strings"
)

// DefaultResolveTimeout is the bounded wait applied when GUARD_RESOLVE_TIMEOUT
// is unset.
const DefaultResolveTimeout = 10 * time.Second

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string

	// MetricsToken, when set, is required to scrape /metrics.
	MetricsToken string

	Redis     RedisConfig
	Identity  IdentityConfig
	Guard     GuardConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig

	// TrustedProxies are CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For is believed. Empty means the TCP peer is the client.
	TrustedProxies []string

	// AdminIdentities are identity IDs granted the administrator role at
	// startup.
	AdminIdentities []string
}

// RedisConfig configures the role directory's Redis connection. An empty
// URL selects the in-memory directory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IdentityConfig selects the identity backend: Kratos when KratosPublicURL is
// set, dev tokens otherwise.
type IdentityConfig struct {
	KratosPublicURL string
	KratosTimeout   time.Duration
	DevSessionKey   string
	DevSessionTTL   time.Duration
	SecureCookies   bool
}

// GuardConfig tunes the route access guard.
type GuardConfig struct {
	ResolveTimeout time.Duration
}

// RateLimitConfig caps form posts per client IP per minute.
type RateLimitConfig struct {
	SignInPerMinute     int
	RoleChangePerMinute int
}

// TracingConfig configures OTLP span export. An empty Endpoint disables it.
type TracingConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64
}

func (t TracingConfig) Enabled() bool { return t.Endpoint != "" }

// UseKratos reports whether sessions are verified by Kratos.
func (c IdentityConfig) UseKratos() bool {
	return c.KratosPublicURL != ""
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	resolveTimeout, err := durationEnv("GUARD_RESOLVE_TIMEOUT", DefaultResolveTimeout)
	if err != nil {
		return Server{}, err
	}

	signInLimit, err := intEnv("SIGNIN_RATE_LIMIT", 10)
	if err != nil {
		return Server{}, err
	}
	roleChangeLimit, err := intEnv("ROLE_CHANGE_RATE_LIMIT", 30)
	if err != nil {
		return Server{}, err
	}

	sampleRatio := 0.1
	if raw := strings.TrimSpace(os.Getenv("OTEL_TRACE_SAMPLE_RATIO")); raw != "" {
		sampleRatio, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return Server{}, fmt.Errorf("parse OTEL_TRACE_SAMPLE_RATIO: %w", err)
		}
	}

	devKey := os.Getenv("DEV_SESSION_KEY")
	if devKey == "" && os.Getenv("KRATOS_PUBLIC_URL") == "" {
		// Use a default for development - should be overridden in production
		devKey = "dev-session-key-change-me"
	}

	cfg := Server{
		Addr:         getEnv("DONORHUB_ADDR", ":8080"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		MetricsToken: os.Getenv("METRICS_TOKEN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Identity: IdentityConfig{
			KratosPublicURL: os.Getenv("KRATOS_PUBLIC_URL"),
			KratosTimeout:   5 * time.Second,
			DevSessionKey:   devKey,
			DevSessionTTL:   8 * time.Hour,
			SecureCookies:   os.Getenv("SECURE_COOKIES") == "true",
		},
		Guard: GuardConfig{
			ResolveTimeout: resolveTimeout,
		},
		RateLimit: RateLimitConfig{
			SignInPerMinute:     signInLimit,
			RoleChangePerMinute: roleChangeLimit,
		},
		Tracing: TracingConfig{
			Endpoint:       strings.TrimRight(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "/"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "donorhub"),
			ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
			SampleRatio:    sampleRatio,
		},
		TrustedProxies:  pstrings.SplitList(os.Getenv("TRUSTED_PROXIES")),
		AdminIdentities: pstrings.SplitList(os.Getenv("ADMIN_IDENTITIES")),
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot start with.
func (c Server) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("DONORHUB_ADDR must not be empty"))
	}
	if c.Guard.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("GUARD_RESOLVE_TIMEOUT must be positive"))
	}
	if c.RateLimit.SignInPerMinute <= 0 || c.RateLimit.RoleChangePerMinute <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("trace sample ratio must be between 0 and 1"))
	}
	if _, err := metadata.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, err)
	}
	if c.Identity.UseKratos() {
		u, err := url.Parse(c.Identity.KratosPublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("KRATOS_PUBLIC_URL %q is not an absolute URL", c.Identity.KratosPublicURL))
		}
	} else if len(c.Identity.DevSessionKey) < 16 {
		errs = append(errs, errors.New("DEV_SESSION_KEY must be at least 16 bytes"))
	}
	return errors.Join(errs...)
}

// durationEnv accepts Go durations ("10s") or plain seconds ("10").
func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
