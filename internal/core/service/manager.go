// Package service implements the ClubMesh manager.
package service

import (
	"context"
	"time"

	"github.com/yndnr/clubmesh-go/internal/core/domain"
	"github.com/yndnr/clubmesh-go/internal/core/event"
	"github.com/yndnr/clubmesh-go/internal/storage/memory"
	"github.com/yndnr/clubmesh-go/internal/telemetry/logger"
	"github.com/yndnr/clubmesh-go/internal/telemetry/metric"
	"github.com/yndnr/clubmesh-go/pkg/clock"
)

// Store defines the durable storage interface the manager needs.
type Store interface {
	// PutToken inserts a token row. Returns ErrTokenCollision if the
	// ID already exists.
	PutToken(ctx context.Context, token *domain.Token) error

	// TouchToken updates a token's last_used timestamp.
	TouchToken(ctx context.Context, id string, lastUsed time.Time) error

	// DeleteToken removes a token row. Returns true if a row was
	// deleted.
	DeleteToken(ctx context.Context, id string) (bool, error)

	// DeleteTokensByPrincipal removes every token issued to a
	// principal and returns the count.
	DeleteTokensByPrincipal(ctx context.Context, principal string) (int, error)

	// DeleteExpiredTokens removes every token expired at now and
	// returns the count.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)

	// LoadTokens reads every non-expired token row.
	LoadTokens(ctx context.Context, now time.Time) ([]*domain.Token, error)

	// CountTokens returns the total number of token rows, expired
	// included.
	CountTokens(ctx context.Context) (int, error)

	// PutRelationship inserts a follow edge or reactivates the pair's
	// inactive row. Returns ErrRelationshipExists when the pair is
	// already active.
	PutRelationship(ctx context.Context, edge *domain.Relationship) error

	// SetRelationshipStatus updates an edge's status. Returns true if
	// a row changed.
	SetRelationshipStatus(ctx context.Context, follower, following, status string, now time.Time) (bool, error)

	// LoadRelationships reads every relationship row, inactive
	// included.
	LoadRelationships(ctx context.Context) ([]*domain.Relationship, error)

	// CountRelationships returns the total number of relationship
	// rows, inactive included.
	CountRelationships(ctx context.Context) (int, error)
}

// Manager is the façade over the durable store, the cache, and the
// notification bus.
//
// Every mutating operation follows the same order: durable write,
// cache update, notification. Mutations on the same token id or the
// same ordered principal pair are serialized by striped locks; the
// durable store's constraints are the final backstop.
type Manager struct {
	store   Store
	cache   *memory.Cache
	bus     *event.Bus
	clock   clock.Clock
	log     logger.Logger
	metrics *metric.Registry

	locks    *keyLock
	limiters *RateLimiterRegistry

	// issueRate limits token issuance per principal, in tokens per
	// second. Zero disables limiting.
	issueRate int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger. Defaults to the package default logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics sets the metrics registry. Nil disables metrics.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithBus sets the notification bus. Defaults to a fresh bus.
func WithBus(b *event.Bus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithIssueRateLimit enables per-principal token issuance limiting at
// perSecond tokens per second (burst equals perSecond).
func WithIssueRateLimit(perSecond int) Option {
	return func(m *Manager) { m.issueRate = perSecond }
}

// New creates a Manager and warms the cache from the durable store.
// Expired token rows are left on disk; they are removed lazily or by
// SweepExpired.
func New(ctx context.Context, store Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:    store,
		cache:    memory.New(),
		bus:      event.NewBus(),
		clock:    clock.Real(),
		log:      logger.Default(),
		locks:    newKeyLock(),
		limiters: NewRateLimiterRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	tokens, err := store.LoadTokens(ctx, m.clock.Now())
	if err != nil {
		return nil, err
	}
	edges, err := store.LoadRelationships(ctx)
	if err != nil {
		return nil, err
	}
	m.cache.Load(tokens, edges)

	if m.metrics != nil {
		m.metrics.TokensActive.Set(float64(m.cache.TokenCount()))
		m.metrics.FollowsActive.Set(float64(m.cache.EdgeCount()))
	}

	m.log.Info("manager ready",
		"tokens", m.cache.TokenCount(),
		"edges", m.cache.EdgeCount(),
	)

	return m, nil
}

// Bus returns the notification bus for subscribing to lifecycle
// events.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// Clock returns the manager's time source, so callers driving
// periodic work share it.
func (m *Manager) Clock() clock.Clock {
	return m.clock
}

// publish emits a notification. Delivery is synchronous, after the
// durable write and cache update have completed.
func (m *Manager) publish(eventType string, payload map[string]any) {
	m.bus.Publish(event.Event{
		Type:    eventType,
		At:      m.clock.Now(),
		Payload: payload,
	})
}

// observe records an operation latency sample.
func (m *Manager) observe(op string, start time.Time) {
	if m.metrics == nil {
		return
	}
	m.metrics.OpDuration.WithLabelValues(op).Observe(m.clock.Now().Sub(start).Seconds())
}

// syncGauges refreshes the active-count gauges from the cache.
func (m *Manager) syncGauges() {
	if m.metrics == nil {
		return
	}
	m.metrics.TokensActive.Set(float64(m.cache.TokenCount()))
	m.metrics.FollowsActive.Set(float64(m.cache.EdgeCount()))
}
