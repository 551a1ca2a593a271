package guard

import (
	"context"
	"log/slog"
	"time"

	"donorhub/internal/guard/metrics"
	"donorhub/internal/session"
)

// DefaultResolveTimeout bounds how long a viewer waits for the session to
// resolve before the guard gives up and denies.
const DefaultResolveTimeout = 10 * time.Second

// EffectKind is what a renderer must do.
type EffectKind int

const (
	EffectLoading EffectKind = iota
	EffectRender
	EffectRedirect
)

func (k EffectKind) String() string {
	switch k {
	case EffectRender:
		return "render"
	case EffectRedirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Effect is one render instruction for the protected region.
type Effect struct {
	Kind     EffectKind
	Verdict  Verdict
	Location string
}

// Renderer applies effects to the protected region.
type Renderer interface {
	Apply(Effect)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Effect)

func (f RendererFunc) Apply(e Effect) { f(e) }

// Source is a push-updated stream of snapshots, such as a
// *session.Subscription.
type Source interface {
	Ready() <-chan struct{}
	Drain() []session.Snapshot
}

// Guard holds the policy shared by mounts and middleware.
type Guard struct {
	fallbacks      Fallbacks
	resolveTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

func WithFallbacks(f Fallbacks) Option {
	return func(g *Guard) {
		if f.Home != "" {
			g.fallbacks.Home = f.Home
		}
		if f.Login != "" {
			g.fallbacks.Login = f.Login
		}
	}
}

// WithResolveTimeout sets the bounded wait for an unresolved session.
func WithResolveTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.resolveTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func New(logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{
		fallbacks:      DefaultFallbacks,
		resolveTimeout: DefaultResolveTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Fallbacks returns the configured navigation targets.
func (g *Guard) Fallbacks() Fallbacks {
	return g.fallbacks
}

// ResolveTimeout returns the configured bounded wait.
func (g *Guard) ResolveTimeout() time.Duration {
	return g.resolveTimeout
}

// Effect maps a verdict to the render instruction for it.
func (g *Guard) Effect(v Verdict) Effect {
	switch v.Decision {
	case Granted:
		return Effect{Kind: EffectRender, Verdict: v}
	case Denied:
		return Effect{Kind: EffectRedirect, Verdict: v, Location: g.fallbacks.Location(v)}
	default:
		return Effect{Kind: EffectLoading, Verdict: v}
	}
}

// Mount runs one mount lifecycle of a region guarded by req. It renders the
// loading effect immediately, then applies an effect each time the verdict for
// the latest snapshot changes. While pending, the bounded wait runs; if it
// expires the region is denied as unverifiable, and a later resolved snapshot
// is still honoured.
//
// Mount blocks until ctx ends. Nothing is applied after ctx ends.
func (g *Guard) Mount(ctx context.Context, src Source, req Requirement, r Renderer) {
	g.metrics.MountStarted()
	defer g.metrics.MountEnded()

	m := &mount{guard: g, req: req, renderer: r}
	defer m.stopTimer()

	m.apply(ctx, verdictPending)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.timeout:
			m.timeout = nil
			if m.last.Decision == Pending {
				g.metrics.IncrementResolveTimeout()
				g.logger.WarnContext(ctx, "session did not resolve within bounded wait",
					"requirement", req.String(),
					"timeout", g.resolveTimeout,
				)
				m.apply(ctx, verdictUnverified)
			}
		case <-src.Ready():
			for _, snap := range src.Drain() {
				m.apply(ctx, Evaluate(snap, req))
			}
		}
	}
}

type mount struct {
	guard    *Guard
	req      Requirement
	renderer Renderer
	last     Verdict
	applied  bool
	timer    *time.Timer
	timeout  <-chan time.Time
}

func (m *mount) apply(ctx context.Context, v Verdict) {
	if ctx.Err() != nil {
		return
	}
	if m.applied && v == m.last {
		return
	}
	m.applied = true
	m.last = v

	if v.Decision == Pending {
		m.startTimer()
	} else {
		m.stopTimer()
	}

	m.guard.metrics.IncrementVerdict("mount", m.req.String(), v.Decision.String(), string(v.Reason))
	m.renderer.Apply(m.guard.Effect(v))
}

func (m *mount) startTimer() {
	m.stopTimer()
	m.timer = time.NewTimer(m.guard.resolveTimeout)
	m.timeout = m.timer.C
}

func (m *mount) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timeout = nil
}
