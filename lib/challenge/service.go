package challenge

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mkyhq/glyphcaptcha/internal"
	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"github.com/mkyhq/glyphcaptcha/lib/store"
)

// Outcomes of a validation attempt. Callers only ever see a boolean; these
// end up in logs and metrics.
const (
	ResultOK       = "ok"
	ResultEmpty    = "empty"
	ResultMissing  = "missing"
	ResultExpired  = "expired"
	ResultMismatch = "mismatch"
	ResultError    = "error"
)

type Options struct {
	Config   config.Config
	Store    store.Interface
	Renderer Renderer
	Audio    AudioMapper
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Service issues and validates challenges. It holds no per-session state of
// its own and is safe for concurrent use.
type Service struct {
	cfg      config.Config
	alphabet []rune
	store    *Store
	renderer Renderer
	audio    AudioMapper
	clock    func() time.Time
	logger   *slog.Logger
}

func New(opts Options) (*Service, error) {
	if err := opts.Config.Valid(); err != nil {
		return nil, err
	}

	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrMissingBackend)
	}

	if opts.Renderer == nil {
		return nil, fmt.Errorf("%w: renderer", ErrMissingBackend)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		cfg:      opts.Config,
		alphabet: opts.Config.Alphabet(),
		store:    NewStore(opts.Store, opts.Config),
		renderer: opts.Renderer,
		audio:    opts.Audio,
		clock:    opts.Clock,
		logger:   opts.Logger.With("subsystem", "challenge"),
	}, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() config.Config {
	return s.cfg
}

// Issue generates a fresh code for session, renders it and stores it,
// replacing any challenge the session already had. A length below 1 means
// the configured length.
func (s *Service) Issue(ctx context.Context, session string, length int) (*Artifact, error) {
	if length < 1 {
		length = s.cfg.Length
	}

	code, err := GenerateCode(s.alphabet, length)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	img, err := s.renderer.Render(code, s.cfg)
	renderTime.Observe(float64(time.Since(t0).Microseconds()) / 1000)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	var clips []string
	if s.audio != nil {
		clips = s.audio.Map(code, s.cfg)
	}

	if err := s.store.Put(ctx, session, Challenge{Code: code, IssuedAt: s.clock()}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	challengesIssued.Inc()
	s.logger.DebugContext(ctx, "challenge issued", "session", internal.FastHash(session), "length", length)

	return &Artifact{Image: img, Audio: clips}, nil
}

// Validate reports whether submitted answers the session's challenge. Case
// is ignored. Any stored challenge is consumed by the attempt, whatever
// the outcome, so each code can be tried once. Only store failures return
// an error.
func (s *Service) Validate(ctx context.Context, session, submitted string) (bool, error) {
	lg := s.logger.With("session", internal.FastHash(session))

	if submitted == "" {
		s.record(ctx, lg, ResultEmpty)
		return false, nil
	}

	chall, err := s.store.Take(ctx, session)
	if err != nil {
		s.record(ctx, lg, ResultError)
		return false, fmt.Errorf("%w: %w", ErrStore, err)
	}

	if chall == nil {
		s.record(ctx, lg, ResultMissing)
		return false, nil
	}

	if s.clock().Sub(chall.IssuedAt) > s.cfg.ExpireAfter() {
		s.record(ctx, lg, ResultExpired)
		return false, nil
	}

	if !codesMatch(chall.Code, submitted) {
		s.record(ctx, lg, ResultMismatch)
		return false, nil
	}

	s.record(ctx, lg, ResultOK)
	return true, nil
}

// Exists reports whether the session has a stored challenge, expired or
// not. It does not consume anything.
func (s *Service) Exists(ctx context.Context, session string) (bool, error) {
	chall, err := s.store.Get(ctx, session)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return chall != nil, nil
}

// Clear drops the session's challenge if there is one.
func (s *Service) Clear(ctx context.Context, session string) error {
	if err := s.store.Delete(ctx, session); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	return nil
}

// Rule binds Validate to a session for use as a form field validation rule.
// Backend failures count as an invalid answer.
func (s *Service) Rule(ctx context.Context, session string) func(value string) bool {
	return func(value string) bool {
		ok, err := s.Validate(ctx, session, value)
		if err != nil {
			s.logger.ErrorContext(ctx, "can't validate challenge", "session", internal.FastHash(session), "err", err)
			return false
		}

		return ok
	}
}

func (s *Service) record(ctx context.Context, lg *slog.Logger, result string) {
	validations.WithLabelValues(result).Inc()
	lg.DebugContext(ctx, "challenge validated", "result", result)
}

func codesMatch(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToUpper(want)), []byte(strings.ToUpper(got))) == 1
}
