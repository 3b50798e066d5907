package challengetest

import (
	"sync"
	"testing"
	"time"

	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
)

// PNGMagic is what Renderer returns when it succeeds.
var PNGMagic = []byte("\x89PNG\r\n\x1a\n")

// Renderer records the codes it is asked to draw. It fails with Err when
// that is set.
type Renderer struct {
	Err error

	lock  sync.Mutex
	codes []string
}

func (r *Renderer) Render(code string, _ config.Config) ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.codes = append(r.codes, code)

	if r.Err != nil {
		return nil, r.Err
	}

	return PNGMagic, nil
}

// Last returns the most recently rendered code.
func (r *Renderer) Last(t *testing.T) string {
	t.Helper()

	r.lock.Lock()
	defer r.lock.Unlock()

	if len(r.codes) == 0 {
		t.Fatal("nothing was rendered")
	}

	return r.codes[len(r.codes)-1]
}

// Clock is a settable time source.
type Clock struct {
	lock sync.Mutex
	now  time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// Config returns the default configuration with the given alphabet and
// length, or the defaults where those are zero.
func Config(t *testing.T, alphabet string, length int) config.Config {
	t.Helper()

	cfg := config.Default()
	if alphabet != "" {
		cfg.Characters = alphabet
	}
	if length != 0 {
		cfg.Length = length
	}

	if err := cfg.Valid(); err != nil {
		t.Fatal(err)
	}

	return cfg
}
