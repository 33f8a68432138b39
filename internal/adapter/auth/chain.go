package auth

import (
	"context"

	"github.com/V4T54L/reqnotify/internal/domain"
)

type anyOf []domain.APIKeyRepository

// AnyOf accepts a credential when any of repos accepts it. Nil entries are
// skipped; it returns nil when nothing is left, meaning auth is disabled.
// An error from one source is returned only if no later source accepts the key.
func AnyOf(repos ...domain.APIKeyRepository) domain.APIKeyRepository {
	var chain anyOf
	for _, r := range repos {
		if r != nil {
			chain = append(chain, r)
		}
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}
	return chain
}

func (c anyOf) IsValid(ctx context.Context, key string) (bool, error) {
	var firstErr error
	for _, r := range c {
		ok, err := r.IsValid(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}
