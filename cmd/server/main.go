package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	guardpkg "donorhub/internal/guard"
	guardmetrics "donorhub/internal/guard/metrics"
	httpapi "donorhub/internal/http"
	"donorhub/internal/platform/config"
	"donorhub/internal/platform/httpserver"
	"donorhub/internal/platform/logger"
	"donorhub/internal/platform/metrics"
	"donorhub/internal/platform/redis"
	"donorhub/internal/platform/tracing"
	"donorhub/internal/ratelimit"
	"donorhub/internal/session"
	"donorhub/internal/session/identity"
	"donorhub/internal/session/roles"
	"donorhub/internal/web"
	"donorhub/pkg/platform/middleware/metadata"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Decisions live in internal/guard.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	idp, pagesCfg := buildIdentity(cfg, log)

	resolver := session.NewResolver(idp, st.roles, log)
	provider := session.NewProvider(session.NewHub(), resolver, log)

	g := guardpkg.New(log,
		guardpkg.WithResolveTimeout(cfg.Guard.ResolveTimeout),
		guardpkg.WithMetrics(guardmetrics.New()),
	)
	credential := guardpkg.CookieCredential(pagesCfg.CookieName)

	appMetrics := metrics.New()
	pagesCfg.Guard = guardpkg.NewMiddleware(g, resolver, credential, log)
	pagesCfg.Stream = guardpkg.NewStreamHandler(g, provider, credential, log)
	pagesCfg.Sessions = provider
	pagesCfg.Roles = st.roles
	limiter := ratelimit.NewMiddleware(st.limits, log)
	pagesCfg.SignInThrottle = limiter.Limit("signin", ratelimit.Policy{Limit: cfg.RateLimit.SignInPerMinute, Window: time.Minute})
	pagesCfg.RoleChangeThrottle = limiter.Limit("role_change", ratelimit.Policy{Limit: cfg.RateLimit.RoleChangePerMinute, Window: time.Minute})
	pagesCfg.Metrics = appMetrics
	pagesCfg.Logger = log
	pages, err := web.New(pagesCfg)
	if err != nil {
		return fmt.Errorf("build pages: %w", err)
	}

	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Pages:        pages,
		Metrics:      appMetrics,
		Gatherer:     prometheus.DefaultGatherer,
		MetricsToken: cfg.MetricsToken,
		Health:       st.health,
		Logger:       log,

		TrustedProxies: trusted,
	})
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting donorhub",
			"addr", cfg.Addr,
			"identity", identityBackend(cfg),
			"roles", rolesBackend(cfg),
			"guard_resolve_timeout", cfg.Guard.ResolveTimeout,
			"tracing", cfg.Tracing.Enabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

type roleDirectory interface {
	session.RoleDirectory
	web.RoleAdmin
}

type stores struct {
	roles  roleDirectory
	limits ratelimit.Store
	health map[string]httpapi.HealthCheck
	close  func()
}

// buildStores backs the role directory and rate limiter with Redis when
// REDIS_URL is set and seeds the configured administrators.
func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (stores, error) {
	st := stores{
		health: map[string]httpapi.HealthCheck{},
		close:  func() {},
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return stores{}, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		st.roles = roles.NewRedis(client.Client)
		st.limits = ratelimit.NewRedis(client.Client)
		st.health["redis"] = client.Health
		st.close = func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis", "error", err)
			}
		}
	} else {
		st.roles = roles.NewInMemory()
		st.limits = ratelimit.NewInMemory()
	}

	if err := roles.SeedAdministrators(ctx, st.roles, cfg.AdminIdentities); err != nil {
		st.close()
		return stores{}, err
	}
	if len(cfg.AdminIdentities) > 0 {
		log.Info("seeded administrators", "count", len(cfg.AdminIdentities))
	}
	return st, nil
}

// buildIdentity returns the session validator along with the page settings
// for the matching sign-in flow.
func buildIdentity(cfg config.Server, log *slog.Logger) (session.IdentityValidator, web.Config) {
	if cfg.Identity.UseKratos() {
		kratos := identity.NewKratosGateway(cfg.Identity.KratosPublicURL, cfg.Identity.KratosTimeout)
		return kratos, web.Config{
			Flows:         kratos,
			CookieName:    identity.KratosCookieName,
			SecureCookies: cfg.Identity.SecureCookies,
		}
	}

	log.Warn("no identity service configured; dev sign-in is enabled")
	tokens := identity.NewDevTokens(cfg.Identity.DevSessionKey, "donorhub", cfg.Identity.DevSessionTTL)
	return tokens, web.Config{
		DevTokens:     tokens,
		CookieName:    identity.DevCookieName,
		CookieTTL:     cfg.Identity.DevSessionTTL,
		SecureCookies: cfg.Identity.SecureCookies,
	}
}

func identityBackend(cfg config.Server) string {
	if cfg.Identity.UseKratos() {
		return "kratos"
	}
	return "dev-tokens"
}

func rolesBackend(cfg config.Server) string {
	if cfg.Redis.URL != "" {
		return "redis"
	}
	return "memory"
}
