package session

import (
	"context"
	"log/slog"
)

// Provider owns session state for the application. It runs resolution cycles
// through a SnapshotResolver and pushes every snapshot through a Hub.
type Provider struct {
	hub      *Hub
	resolver SnapshotResolver
	logger   *slog.Logger
}

func NewProvider(hub *Hub, resolver SnapshotResolver, logger *slog.Logger) *Provider {
	return &Provider{
		hub:      hub,
		resolver: resolver,
		logger:   logger,
	}
}

// Watch subscribes to the session behind credential for as long as ctx lives.
// Every watch starts a fresh resolution cycle: the subscriber first sees
// unresolved, never a snapshot cached from an earlier cycle, and other
// subscribers of the key see the new cycle too.
func (p *Provider) Watch(ctx context.Context, credential string) *Subscription {
	cycle := p.hub.Begin(credential)
	sub := p.hub.Subscribe(credential)
	go p.complete(context.WithoutCancel(ctx), credential, cycle)
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub
}

// Refresh runs a new resolution cycle and returns its result. Subscribers see
// an unresolved snapshot followed by the result.
func (p *Provider) Refresh(ctx context.Context, credential string) Snapshot {
	cycle := p.hub.Begin(credential)
	return p.complete(ctx, credential, cycle)
}

// RefreshIdentity re-resolves every live session that currently belongs to
// identityID, for example after a role change. It returns how many sessions
// were refreshed.
func (p *Provider) RefreshIdentity(ctx context.Context, identityID string) int {
	if identityID == "" {
		return 0
	}
	var keys []string
	p.hub.Range(func(key string, current Snapshot) {
		if current.IdentityID() == identityID {
			keys = append(keys, key)
		}
	})
	for _, key := range keys {
		p.Refresh(ctx, key)
	}
	return len(keys)
}

// SignOut ends the session behind credential for every subscriber. Any cycle
// still in flight for it is discarded. Call it only once the credential is
// no longer valid at its source.
func (p *Provider) SignOut(credential string) {
	cycle := p.hub.Begin(credential)
	p.hub.Complete(credential, cycle, Anonymous())
	p.logger.Info("session signed out", "session", Fingerprint(credential))
}

func (p *Provider) complete(ctx context.Context, credential string, cycle uint64) Snapshot {
	snap := p.resolver.Resolve(ctx, credential)
	if !p.hub.Complete(credential, cycle, snap) {
		p.logger.DebugContext(ctx, "discarded stale session resolution",
			"session", Fingerprint(credential),
			"cycle", cycle,
		)
	}
	return snap
}
