package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store is an optional second-level directions cache that survives restarts.
// Get returns a nil response on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*DirectionsResponse, error)
	Put(ctx context.Context, key string, resp *DirectionsResponse) error
	// Prune deletes entries fetched before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Store is an optional persistent cache consulted on memory misses.
	Store Store

	// Logger for service operations.
	Logger zerolog.Logger

	// Timeout bounds each provider call (default: 4 seconds).
	Timeout time.Duration

	// CacheTTL is how long to cache routing data (default: 30 minutes).
	// Road geometry between two fixed points rarely changes.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 24 hours).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service wraps a Provider with a bounded call time and caching. It
// implements Provider itself.
type Service struct {
	provider        Provider
	store           Store
	logger          zerolog.Logger
	timeout         time.Duration
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 4 * time.Second
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 24 * time.Hour
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		store:           cfg.Store,
		logger:          cfg.Logger,
		timeout:         timeout,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedDirections),
	}
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// Directions returns provider paths between two points, from cache when fresh.
func (s *Service) Directions(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := ValidateEndpoints(req.Origin, req.Destination); err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return cached.response, nil
	}
	s.mu.RUnlock()

	return s.fetchDirections(ctx, req, cacheKey)
}

func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		return cached.response, nil
	}

	persisted := s.loadPersisted(ctx, cacheKey)
	if persisted != nil && time.Since(persisted.FetchedAt) < s.cacheTTL {
		s.remember(cacheKey, persisted, persisted.FetchedAt)
		return persisted, nil
	}

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.Directions(callCtx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lon", req.Origin.Lon).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lon", req.Destination.Lon).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch directions")

		if stale := s.staleFor(cacheKey, persisted); stale != nil {
			s.logger.Warn().
				Time("fetched_at", stale.FetchedAt).
				Str("cache_key", cacheKey).
				Msg("serving stale directions due to provider error")
			return stale, nil
		}
		return nil, err
	}

	now := time.Now()
	if resp.FetchedAt.IsZero() {
		resp.FetchedAt = now
	}
	s.remember(cacheKey, resp, now)

	if s.store != nil {
		if err := s.store.Put(ctx, cacheKey, resp); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", cacheKey).Msg("failed to persist directions")
		}
	}

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("path_count", len(resp.Paths)).
		Msg("cached directions response")

	s.cleanupIfNeeded(ctx)

	return resp, nil
}

// remember stores resp in memory. Caller holds s.mu.
func (s *Service) remember(key string, resp *DirectionsResponse, fetchedAt time.Time) {
	s.cache[key] = &cachedDirections{
		response:  resp,
		fetchedAt: fetchedAt,
		expiresAt: fetchedAt.Add(s.cacheTTL),
	}
}

func (s *Service) loadPersisted(ctx context.Context, key string) *DirectionsResponse {
	if s.store == nil {
		return nil
	}
	resp, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to read persisted directions")
		return nil
	}
	return resp
}

// staleFor returns the freshest cached response still inside the
// stale-if-error window. Caller holds s.mu.
func (s *Service) staleFor(key string, persisted *DirectionsResponse) *DirectionsResponse {
	now := time.Now()
	if cached, ok := s.cache[key]; ok && now.Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		return cached.response
	}
	if persisted != nil && now.Before(persisted.FetchedAt.Add(s.staleIfErrorTTL)) {
		return persisted
	}
	return nil
}

// cacheKey quantizes both endpoints to the cache grid.
// Format: {provider}:{gridOriginLat},{gridOriginLon}:{gridDestLat},{gridDestLon}:{alts}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	q := func(v float64) float64 { return math.Floor(v/s.cacheGridSize) * s.cacheGridSize }

	return fmt.Sprintf("%s:%.4f,%.4f:%.4f,%.4f:%d",
		s.provider.Name(),
		q(req.Origin.Lat), q(req.Origin.Lon),
		q(req.Destination.Lat), q(req.Destination.Lon),
		req.MaxAlternatives,
	)
}

// cleanupIfNeeded removes entries past the stale-if-error window, in memory
// and in the store, once per cleanup interval. Caller holds s.mu.
func (s *Service) cleanupIfNeeded(ctx context.Context) {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}

	if s.store == nil {
		return
	}
	pruned, err := s.store.Prune(ctx, now.Add(-s.staleIfErrorTTL))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune persisted directions")
		return
	}
	if pruned > 0 {
		s.logger.Debug().
			Int64("pruned_entries", pruned).
			Msg("pruned persisted directions")
	}
}

// InvalidateCache clears the in-memory cache.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
		Persistent:   s.store != nil,
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
	Persistent   bool
}
