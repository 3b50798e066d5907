package lib

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"github.com/mkyhq/glyphcaptcha/lib/store/memory"
)

func TestLoadConfigOrDefault(t *testing.T) {
	cfg, err := LoadConfigOrDefault("")
	if err != nil {
		t.Fatalf("can't load built-in config: %v", err)
	}

	def := config.Default()
	if cfg.Length != def.Length || cfg.Characters != def.Characters || cfg.SessionKey != def.SessionKey {
		t.Errorf("built-in config drifted from the defaults: %+v", cfg)
	}

	if cfg.Store == nil || cfg.Store.Backend != "memory" {
		t.Errorf("built-in config should use the memory store, got: %+v", cfg.Store)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("length: 4\ncharacters: AB12\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("width: -5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigOrDefault(good)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Length != 4 || cfg.Characters != "AB12" {
		t.Errorf("file values not applied: %+v", cfg)
	}

	if _, err := LoadConfigOrDefault(bad); !errors.Is(err, config.ErrInvalidDimensions) {
		t.Errorf("wanted %v, got: %v", config.ErrInvalidDimensions, err)
	}

	if _, err := LoadConfigOrDefault(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("wanted %v, got: %v", os.ErrNotExist, err)
	}
}

func TestBuildStore(t *testing.T) {
	for _, tt := range []struct {
		name  string
		store *config.Store
		err   error
	}{
		{
			name:  "memory",
			store: &config.Store{Backend: "memory"},
		},
		{
			name: "no store",
			err:  ErrNoStore,
		},
		{
			name:  "unknown backend",
			store: &config.Store{Backend: "taco salad"},
			err:   config.ErrUnknownStoreBackend,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store = tt.store

			st, err := BuildStore(t.Context(), &cfg)
			if !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Fatal("invalid error returned")
			}

			if err == nil && st == nil {
				t.Error("no store returned")
			}
		})
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoStore) {
		t.Errorf("wanted %v, got: %v", ErrNoStore, err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Length = 0

	_, err := New(Options{Config: &cfg, Store: memory.New(t.Context())})
	if !errors.Is(err, config.ErrInvalidLength) {
		t.Errorf("wanted %v, got: %v", config.ErrInvalidLength, err)
	}
}
