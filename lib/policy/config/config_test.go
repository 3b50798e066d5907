package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
)

func TestDefaultIsValid(t *testing.T) {
	c := config.Default()
	if err := c.Valid(); err != nil {
		t.Fatalf("default config is not valid: %v", err)
	}

	if c.Length != 6 || c.Width != 200 || c.Height != 60 {
		t.Errorf("wrong default geometry: length=%d size=%dx%d", c.Length, c.Width, c.Height)
	}

	if c.ExpireAfter() != 5*time.Minute {
		t.Errorf("wanted default expiry of 5m, got: %s", c.ExpireAfter())
	}

	if got := len(c.Alphabet()); got != 36 {
		t.Errorf("wanted 36 default characters, got: %d", got)
	}
}

func TestConfigValid(t *testing.T) {
	for _, tt := range []struct {
		name string
		mod  func(c *config.Config)
		err  error
	}{
		{
			name: "defaults",
			mod:  func(*config.Config) {},
		},
		{
			name: "zero length",
			mod:  func(c *config.Config) { c.Length = 0 },
			err:  config.ErrInvalidLength,
		},
		{
			name: "empty alphabet",
			mod:  func(c *config.Config) { c.Characters = "" },
			err:  config.ErrEmptyAlphabet,
		},
		{
			name: "single character alphabet",
			mod:  func(c *config.Config) { c.Characters = "A" },
		},
		{
			name: "zero width",
			mod:  func(c *config.Config) { c.Width = 0 },
			err:  config.ErrInvalidDimensions,
		},
		{
			name: "negative height",
			mod:  func(c *config.Config) { c.Height = -1 },
			err:  config.ErrInvalidDimensions,
		},
		{
			name: "color out of range",
			mod:  func(c *config.Config) { c.TextColor = config.RGB{0, 256, 0} },
			err:  config.ErrInvalidColor,
		},
		{
			name: "negative noise",
			mod:  func(c *config.Config) { c.NoiseDots = -3 },
			err:  config.ErrInvalidNoise,
		},
		{
			name: "no noise at all",
			mod: func(c *config.Config) {
				c.NoiseDots = 0
				c.NoiseLines = 0
			},
		},
		{
			name: "zero font size",
			mod:  func(c *config.Config) { c.FontSize = 0 },
			err:  config.ErrInvalidFontSize,
		},
		{
			name: "inverted angle range",
			mod: func(c *config.Config) {
				c.AngleMin = 10
				c.AngleMax = -10
			},
			err: config.ErrInvalidAngleRange,
		},
		{
			name: "flat angle range",
			mod: func(c *config.Config) {
				c.AngleMin = 0
				c.AngleMax = 0
			},
		},
		{
			name: "zero expiry",
			mod:  func(c *config.Config) { c.Expire = 0 },
			err:  config.ErrInvalidExpiry,
		},
		{
			name: "no session key",
			mod:  func(c *config.Config) { c.SessionKey = "" },
			err:  config.ErrMissingSessionKey,
		},
		{
			name: "audio without path",
			mod:  func(c *config.Config) { c.AudioPath = "" },
			err:  config.ErrMissingAudioPath,
		},
		{
			name: "audio disabled without path",
			mod: func(c *config.Config) {
				c.AudioEnabled = false
				c.AudioPath = ""
			},
		},
		{
			name: "unknown store backend",
			mod:  func(c *config.Config) { c.Store = &config.Store{Backend: "taco salad"} },
			err:  config.ErrUnknownStoreBackend,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mod(&c)

			if err := c.Valid(); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("invalid error returned")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		err   error
		check func(t *testing.T, c *config.Config)
	}{
		{
			name:  "empty document keeps defaults",
			input: "{}",
			check: func(t *testing.T, c *config.Config) {
				if c.Length != 6 {
					t.Errorf("wanted default length, got: %d", c.Length)
				}
			},
		},
		{
			name: "yaml overrides",
			input: `length: 4
characters: AB12
audio_enabled: false
text_color: [10, 20, 30]
expire: 10
`,
			check: func(t *testing.T, c *config.Config) {
				if c.Length != 4 {
					t.Errorf("wanted length 4, got: %d", c.Length)
				}

				if c.Characters != "AB12" {
					t.Errorf("wanted characters AB12, got: %q", c.Characters)
				}

				if c.AudioEnabled {
					t.Error("audio should be disabled")
				}

				if c.TextColor != (config.RGB{10, 20, 30}) {
					t.Errorf("wrong text color: %v", c.TextColor)
				}

				if c.Width != 200 {
					t.Errorf("untouched width should keep its default, got: %d", c.Width)
				}

				if c.ExpireAfter() != 10*time.Minute {
					t.Errorf("wanted 10m expiry, got: %s", c.ExpireAfter())
				}
			},
		},
		{
			name:  "json document",
			input: `{"width": 300, "height": 90, "store": {"backend": "bbolt", "parameters": {"path": "/tmp/captcha.db"}}}`,
			check: func(t *testing.T, c *config.Config) {
				if c.Width != 300 || c.Height != 90 {
					t.Errorf("wrong size: %dx%d", c.Width, c.Height)
				}

				if c.Store.Backend != "bbolt" {
					t.Errorf("wrong store backend: %q", c.Store.Backend)
				}
			},
		},
		{
			name:  "two component color",
			input: "line_color: [1, 2]\n",
			err:   config.ErrCantDecodeConfigDoc,
		},
		{
			name:  "invalid values",
			input: "length: 0\n",
			err:   config.ErrInvalidLength,
		},
		{
			name:  "garbage",
			input: "length: [",
			err:   config.ErrCantDecodeConfigDoc,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, err := config.Load(strings.NewReader(tt.input), tt.name)
			if !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Fatal("invalid error returned")
			}

			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestRGB(t *testing.T) {
	r, g, b := config.RGB{255, 0, 51}.Floats()
	if r != 1 || g != 0 || b != 0.2 {
		t.Errorf("wrong float components: %v %v %v", r, g, b)
	}

	if err := (config.RGB{-1, 0, 0}).Valid(); !errors.Is(err, config.ErrInvalidColor) {
		t.Errorf("negative component should be invalid, got: %v", err)
	}
}
