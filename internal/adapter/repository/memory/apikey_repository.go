package memory

import (
	"context"
	"crypto/subtle"
	"strings"
)

// APIKeyRepository validates admin API keys against a fixed list from configuration.
type APIKeyRepository struct {
	keys [][]byte
}

// NewAPIKeyRepository returns nil when keys contains no usable entries,
// which callers treat as "admin auth disabled".
func NewAPIKeyRepository(keys []string) *APIKeyRepository {
	repo := &APIKeyRepository{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			repo.keys = append(repo.keys, []byte(k))
		}
	}
	if len(repo.keys) == 0 {
		return nil
	}
	return repo
}

// IsValid compares key against every configured key in constant time.
func (r *APIKeyRepository) IsValid(_ context.Context, key string) (bool, error) {
	valid := false
	for _, k := range r.keys {
		if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
			valid = true
		}
	}
	return valid, nil
}
