package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"github.com/mkyhq/glyphcaptcha/lib/store"
)

// Store keeps at most one Challenge per session on top of a store backend.
type Store struct {
	db  store.JSON[Challenge]
	ttl time.Duration
}

// NewStore namespaces records under cfg.SessionKey. Records are kept by the
// backend for one minute past their expiry so that stale ones are still
// found, and then collected.
func NewStore(backend store.Interface, cfg config.Config) *Store {
	return &Store{
		db: store.JSON[Challenge]{
			Underlying: backend,
			Prefix:     cfg.SessionKey + ":",
		},
		ttl: cfg.ExpireAfter() + time.Minute,
	}
}

// Put replaces whatever challenge the session had.
func (s *Store) Put(ctx context.Context, session string, c Challenge) error {
	return s.db.Set(ctx, session, c, s.ttl)
}

// Get returns nil without an error when the session has no challenge.
func (s *Store) Get(ctx context.Context, session string) (*Challenge, error) {
	c, err := s.db.Get(ctx, session)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return &c, nil
}

// Delete is idempotent.
func (s *Store) Delete(ctx context.Context, session string) error {
	if err := s.db.Delete(ctx, session); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return nil
}

// Take fetches and removes the session's challenge in one step. It returns
// nil without an error when there was nothing to take.
func (s *Store) Take(ctx context.Context, session string) (*Challenge, error) {
	c, err := s.db.GetDelete(ctx, session)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return &c, nil
}
