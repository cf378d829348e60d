package external

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// ErrCatalogUnavailable is returned while an endpoint's breaker is open.
var ErrCatalogUnavailable = errors.New("catalog service unavailable (circuit breaker open)")

// ResilientCatalogAPI wraps a CatalogAPI with one circuit breaker per
// endpoint and an optional response cache.
type ResilientCatalogAPI struct {
	api      CatalogAPI
	cache    ResponseCache
	settings domain.CircuitBreakerConfig
	logger   *logrus.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewResilientCatalogAPI creates a new resilient catalog transport. cache may be nil.
func NewResilientCatalogAPI(api CatalogAPI, config domain.CircuitBreakerConfig, cache ResponseCache, logger *logrus.Logger) *ResilientCatalogAPI {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}

	r := &ResilientCatalogAPI{
		api:      api,
		cache:    cache,
		settings: config,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	r.breaker(EndpointFiles)
	r.breaker(EndpointCases)
	return r
}

// Query serves from cache when possible, otherwise calls through the
// endpoint's breaker. An open breaker never yields fabricated data.
func (r *ResilientCatalogAPI) Query(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	key := CacheKey(endpoint, params)

	if r.cache != nil {
		if data, found, err := r.cache.Get(ctx, key); err == nil && found {
			r.logger.WithField("endpoint", endpoint).Debug("Catalog response served from cache")
			return data, nil
		}
	}

	result, err := r.breaker(endpoint).Execute(func() (interface{}, error) {
		return r.api.Query(ctx, endpoint, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogUnavailable, endpoint)
		}
		return nil, fmt.Errorf("GDC %s query failed: %w", endpoint, err)
	}

	data := result.([]byte)

	if r.cache != nil {
		if cacheErr := r.cache.Set(ctx, key, data, 0); cacheErr != nil {
			r.logger.WithError(cacheErr).WithField("endpoint", endpoint).Warn("Failed to cache catalog response")
		}
	}

	return data, nil
}

// State returns the breaker state for endpoint.
func (r *ResilientCatalogAPI) State(endpoint string) gobreaker.State {
	return r.breaker(endpoint).State()
}

// States returns the state of every breaker, keyed by endpoint.
func (r *ResilientCatalogAPI) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]string, len(r.breakers))
	for name, cb := range r.breakers {
		states[name] = cb.State().String()
	}
	return states
}

func (r *ResilientCatalogAPI) breaker(endpoint string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[endpoint]; ok {
		return cb
	}

	threshold := r.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GDC " + endpoint,
		MaxRequests: r.settings.MaxRequests,
		Interval:    r.settings.Interval,
		Timeout:     r.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	r.breakers[endpoint] = cb
	return cb
}
