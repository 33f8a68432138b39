package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/reqnotify/internal/adapter/metrics"
)

const validAdminKeyQuery = `SELECT EXISTS(SELECT 1 FROM admin_api_keys WHERE key = $1 AND is_active = true AND (expires_at IS NULL OR expires_at > NOW()))`

type cacheEntry struct {
	isValid   bool
	expiresAt time.Time
}

// APIKeyRepository validates admin API keys against the admin_api_keys table,
// caching answers in memory for cacheTTL.
type APIKeyRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	metrics  *metrics.NotifierMetrics
	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewAPIKeyRepository creates a new PostgreSQL-backed admin key repository. m may be nil.
func NewAPIKeyRepository(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.NotifierMetrics) *APIKeyRepository {
	return &APIKeyRepository{
		db:       db,
		logger:   logger.With("component", "postgres_apikey_repository"),
		metrics:  m,
		cacheTTL: cacheTTL,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

// IsValid reports whether key is an active, unexpired admin key.
// Database errors are not cached so the next request retries.
func (r *APIKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	if valid, ok := r.cached(key); ok {
		if r.metrics != nil {
			r.metrics.APIKeyCacheHits.Inc()
		}
		return valid, nil
	}
	if r.metrics != nil {
		r.metrics.APIKeyCacheMisses.Inc()
	}

	var valid bool
	if err := r.db.QueryRowContext(ctx, validAdminKeyQuery, key).Scan(&valid); err != nil {
		r.logger.Error("failed to validate admin API key in database", "error", err)
		return false, fmt.Errorf("query admin key: %w", err)
	}

	r.mu.Lock()
	r.cache[key] = cacheEntry{isValid: valid, expiresAt: r.now().Add(r.cacheTTL)}
	r.mu.Unlock()

	return valid, nil
}

func (r *APIKeyRepository) cached(key string) (bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !r.now().Before(entry.expiresAt) {
		return false, false
	}
	return entry.isValid, true
}
