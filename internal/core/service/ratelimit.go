// Package service implements the ClubMesh manager.
package service

import (
	"sync"

	"golang.org/x/time/rate"
)

// ============================================================================
// RateLimiterRegistry - Rate Limiter Management
// ============================================================================

// RateLimiterRegistry manages rate limiters for each principal.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiterRegistry creates a new RateLimiterRegistry.
func NewRateLimiterRegistry() *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetOrCreate retrieves an existing rate limiter or creates a new one.
func (r *RateLimiterRegistry) GetOrCreate(principal string, rateLimit int) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[principal]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[principal]; exists {
		return limiter
	}

	// rate.Limit(rateLimit) requests per second, burst = rateLimit
	limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	r.limiters[principal] = limiter

	return limiter
}

// Delete removes a rate limiter for a specific principal.
func (r *RateLimiterRegistry) Delete(principal string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.limiters, principal)
}

// Clear removes all rate limiters.
func (r *RateLimiterRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limiters = make(map[string]*rate.Limiter)
}

// Size returns the number of tracked principals.
func (r *RateLimiterRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.limiters)
}
