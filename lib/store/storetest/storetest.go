package storetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkyhq/glyphcaptcha/lib/store"
)

// Sleeper waits until d has passed from the point of view of the store under
// test. Backends with a simulated clock fast-forward it instead of sleeping.
type Sleeper func(t *testing.T, d time.Duration)

func realSleep(t *testing.T, d time.Duration) {
	t.Helper()
	//nosleep:bypass XXX: switch to testing/synctest once every backend supports it.
	time.Sleep(d)
}

// Common runs the shared store contract against a backend built by f.
func Common(t *testing.T, f store.Factory, config json.RawMessage) {
	CommonWithSleep(t, f, config, realSleep)
}

// CommonWithSleep is Common with a custom way of letting time pass.
func CommonWithSleep(t *testing.T, f store.Factory, config json.RawMessage, sleep Sleeper) {
	if err := f.Valid(config); err != nil {
		t.Fatal(err)
	}

	s, err := f.Build(t.Context(), config)
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name     string
		doer     func(t *testing.T, s store.Interface) error
		err      error
		parallel bool
	}{
		{
			name:     "basic get set delete",
			parallel: true,
			doer: func(t *testing.T, s store.Interface) error {
				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted %s to not exist in store but it exists anyways", t.Name())
				}

				if err := s.Set(t.Context(), t.Name(), []byte(t.Name()), 5*time.Minute); err != nil {
					return err
				}

				val, err := s.Get(t.Context(), t.Name())
				if errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted %s to exist in store but it does not: %v", t.Name(), err)
				} else if err != nil {
					t.Error(err)
				}

				if !bytes.Equal(val, []byte(t.Name())) {
					t.Logf("want: %q", t.Name())
					t.Logf("got:  %q", string(val))
					t.Error("wrong value returned")
				}

				if err := s.Delete(t.Context(), t.Name()); err != nil {
					return err
				}

				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Error("wanted test to not exist in store but it exists anyways")
				}

				if err := s.Delete(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("key %q does not exist and Delete did not return store.ErrNotFound: %v", t.Name(), err)
				}

				return nil
			},
		},
		{
			name:     "set overwrites",
			parallel: true,
			doer: func(t *testing.T, s store.Interface) error {
				if err := s.Set(t.Context(), t.Name(), []byte("first"), 5*time.Minute); err != nil {
					return err
				}

				if err := s.Set(t.Context(), t.Name(), []byte("second"), 5*time.Minute); err != nil {
					return err
				}

				val, err := s.Get(t.Context(), t.Name())
				if err != nil {
					return err
				}

				if string(val) != "second" {
					t.Errorf("wanted the second write to win, got: %q", string(val))
				}

				return nil
			},
		},
		{
			name:     "getdelete consumes",
			parallel: true,
			doer: func(t *testing.T, s store.Interface) error {
				if _, err := s.GetDelete(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted GetDelete on a missing key to return store.ErrNotFound, got: %v", err)
				}

				if err := s.Set(t.Context(), t.Name(), []byte(t.Name()), 5*time.Minute); err != nil {
					return err
				}

				val, err := s.GetDelete(t.Context(), t.Name())
				if err != nil {
					return err
				}

				if !bytes.Equal(val, []byte(t.Name())) {
					t.Logf("want: %q", t.Name())
					t.Logf("got:  %q", string(val))
					t.Error("wrong value returned")
				}

				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Error("wanted value to be gone after GetDelete")
				}

				return nil
			},
		},
		{
			name:     "getdelete single winner",
			parallel: true,
			doer: func(t *testing.T, s store.Interface) error {
				if err := s.Set(t.Context(), t.Name(), []byte(t.Name()), 5*time.Minute); err != nil {
					return err
				}

				var (
					wg   sync.WaitGroup
					hits atomic.Int32
				)

				for range 16 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						if _, err := s.GetDelete(t.Context(), t.Name()); err == nil {
							hits.Add(1)
						}
					}()
				}

				wg.Wait()

				if got := hits.Load(); got != 1 {
					t.Errorf("wanted exactly one GetDelete to win, got %d", got)
				}

				return nil
			},
		},
		{
			name: "expires",
			doer: func(t *testing.T, s store.Interface) error {
				if err := s.Set(t.Context(), t.Name(), []byte(t.Name()), 150*time.Millisecond); err != nil {
					return err
				}

				sleep(t, 155*time.Millisecond)

				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted %s to not exist in store but it exists anyways", t.Name())
				}

				return nil
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if tt.parallel {
				t.Parallel()
			}
			if err := tt.doer(t, s); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}
