// Package storage is the persistent credential store: a small namespaced
// key space of JSON values that survives process restarts.
//
// Reads never fail loudly. A value that is missing, unreadable, or does not
// decode is reported as absent and the cause is logged, so a damaged store
// degrades to "not logged in" instead of an error.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// Keys of the session snapshot.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUserData     = "user_data"
	KeyRememberMe   = "remember_me"
)

// SessionKeys lists every key a logout must remove.
var SessionKeys = []string{KeyAuthToken, KeyRefreshToken, KeyUserData, KeyRememberMe}

// saltSuffix sits outside the "<namespace>." key space so Clear keeps it.
const saltSuffix = "#salt"

type Store struct {
	repo      metadata.Repository
	namespace string
	sealer    *cryptox.Sealer
	log       logging.Logger
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithSealer(sl *cryptox.Sealer) Option {
	return func(s *Store) { s.sealer = sl }
}

func New(repo metadata.Repository, namespace string, opts ...Option) *Store {
	s := &Store{repo: repo, namespace: namespace, log: logging.Discard()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewSealed returns a store whose values are encrypted with a key derived
// from secret. The derivation salt is created on first use and persisted
// next to the namespace.
func NewSealed(ctx context.Context, repo metadata.Repository, namespace, secret string, opts ...Option) (*Store, error) {
	saltKey := namespace + saltSuffix
	salt, err := repo.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("load store salt: %w", err)
	}
	if len(salt) != cryptox.SaltSize {
		salt = cryptox.NewSalt()
		if err := repo.Set(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("save store salt: %w", err)
		}
	}

	sealer, err := cryptox.NewSealerFromSecret(secret, salt)
	if err != nil {
		return nil, err
	}
	return New(repo, namespace, append(opts, WithSealer(sealer))...), nil
}

func (s *Store) key(k string) string {
	return s.namespace + "." + k
}

// Load decodes the value under key into dst. found is false when the key is
// absent. A value that exists but cannot be read back yields an error
// wrapping common.ErrStorageCorrupt.
func (s *Store) Load(ctx context.Context, key string, dst any) (found bool, err error) {
	raw, err := s.repo.Get(ctx, s.key(key))
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}

	if s.sealer != nil {
		raw, err = s.sealer.Open(raw)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %v", common.ErrStorageCorrupt, key, err)
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", common.ErrStorageCorrupt, key, err)
	}
	return true, nil
}

// Get is Load with every failure treated as absence.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	found, err := s.Load(ctx, key, dst)
	if err != nil {
		if errors.Is(err, common.ErrStorageCorrupt) {
			s.log.Warn(ctx, "discarding unreadable stored value", "key", key, "error", err)
		} else {
			s.log.Warn(ctx, "credential store read failed", "key", key, "error", err)
		}
		return false
	}
	return found
}

// Set encodes value as JSON and writes it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if s.sealer != nil {
		raw = s.sealer.Seal(raw)
	}
	if err := s.repo.Set(ctx, s.key(key), raw); err != nil {
		return err
	}
	return nil
}

// Remove deletes keys. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.repo.Delete(ctx, full...)
}

// Clear removes every value of the namespace.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.DeletePrefix(ctx, s.namespace+".")
}
