package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"donorhub/pkg/platform/circuit"
)

var (
	resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "donorhub_session_resolve_duration_seconds",
		Help:    "Latency of session resolution against the identity service",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"outcome"}) // outcome: "anonymous", "authenticated", "failed"
)

const defaultResolveTimeout = 5 * time.Second

// Resolver verifies credentials and attaches roles. It never returns an
// error: every failure is folded into a failed snapshot.
type Resolver struct {
	identities IdentityValidator
	roles      RoleDirectory
	breaker    *circuit.Breaker
	timeout    time.Duration
	group      singleflight.Group
	tracer     trace.Tracer
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBreaker replaces the default identity-service circuit breaker.
func WithBreaker(b *circuit.Breaker) ResolverOption {
	return func(r *Resolver) {
		if b != nil {
			r.breaker = b
		}
	}
}

// WithResolveTimeout bounds a single identity-service round trip.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewResolver(identities IdentityValidator, roles RoleDirectory, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		identities: identities,
		roles:      roles,
		breaker: circuit.New("identity",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(5*time.Second),
		),
		timeout: defaultResolveTimeout,
		tracer:  otel.Tracer("donorhub/session"),
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns a resolved snapshot for credential. Concurrent calls for the
// same credential share one identity-service round trip. If ctx ends first the
// caller gets a failed snapshot while the shared lookup carries on for others.
func (r *Resolver) Resolve(ctx context.Context, credential string) Snapshot {
	if credential == "" {
		return Anonymous()
	}

	ctx, span := r.tracer.Start(ctx, "session.Resolve",
		trace.WithAttributes(attribute.String("session.fingerprint", Fingerprint(credential))),
	)
	defer span.End()

	start := time.Now()
	ch := r.group.DoChan(credential, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.resolve(lookupCtx, credential), nil
	})

	var snap Snapshot
	select {
	case res := <-ch:
		snap = res.Val.(Snapshot)
	case <-ctx.Done():
		snap = Failed(fmt.Errorf("%w: %w", ErrResolveTimeout, ctx.Err()))
	}

	outcome := outcomeLabel(snap)
	resolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("session.outcome", outcome))
	if snap.Err != nil {
		span.SetStatus(codes.Error, snap.Err.Error())
	}
	return snap
}

func (r *Resolver) resolve(ctx context.Context, credential string) Snapshot {
	if !r.breaker.Allow() {
		return Failed(ErrCircuitOpen)
	}

	identity, err := r.identities.ValidateSession(ctx, credential)
	if err != nil {
		if isAnonymousAnswer(err) {
			r.recordSuccess()
			return Anonymous()
		}
		r.recordFailure(ctx, err, credential)
		if !errors.Is(err, ErrIdentityUnavailable) {
			err = fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
		return Failed(err)
	}
	r.recordSuccess()

	if identity == nil || identity.ID == "" {
		return Anonymous()
	}

	role, err := r.roles.Role(ctx, identity.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to look up role",
			"error", err,
			"identity_id", identity.ID,
		)
		return Failed(fmt.Errorf("resolve role: %w", err))
	}
	return Authenticated(*identity, role)
}

func (r *Resolver) recordSuccess() {
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.Info("identity circuit closed", "breaker", r.breaker.Name())
	}
}

func (r *Resolver) recordFailure(ctx context.Context, err error, credential string) {
	_, change := r.breaker.RecordFailure()
	r.logger.WarnContext(ctx, "identity service lookup failed",
		"error", err,
		"session", Fingerprint(credential),
	)
	if change.Opened {
		r.logger.ErrorContext(ctx, "identity circuit opened", "breaker", r.breaker.Name())
	}
}

func outcomeLabel(s Snapshot) string {
	switch {
	case s.Err != nil:
		return "failed"
	case s.HasIdentity():
		return "authenticated"
	default:
		return "anonymous"
	}
}
