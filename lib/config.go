package lib

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mkyhq/glyphcaptcha"
	"github.com/mkyhq/glyphcaptcha/data"
	"github.com/mkyhq/glyphcaptcha/internal"
	"github.com/mkyhq/glyphcaptcha/lib/audio"
	"github.com/mkyhq/glyphcaptcha/lib/challenge"
	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"github.com/mkyhq/glyphcaptcha/lib/render"
	"github.com/mkyhq/glyphcaptcha/lib/store"
)

var ErrNoStore = errors.New("lib: no store backend configured")

type Options struct {
	Config              *config.Config
	Store               store.Interface
	Renderer            challenge.Renderer
	BasePrefix          string
	AudioDir            string
	CookieDynamicDomain bool
	CookieDomain        string
	CookieExpiration    time.Duration
	CookiePartitioned   bool
	CookieSecure        bool
	ED25519PrivateKey   ed25519.PrivateKey
	HS512Secret         []byte
	Clock               func() time.Time
}

// LoadConfigOrDefault reads the configuration from fname, or the built-in
// one when fname is empty.
func LoadConfigOrDefault(fname string) (*config.Config, error) {
	var fin io.ReadCloser
	var err error

	if fname != "" {
		fin, err = os.Open(fname)
		if err != nil {
			return nil, fmt.Errorf("can't parse config file %s: %w", fname, err)
		}
	} else {
		fname = "(data)/captcha.yaml"
		fin, err = data.Config.Open("captcha.yaml")
		if err != nil {
			return nil, fmt.Errorf("[unexpected] can't parse builtin config file %s: %w", fname, err)
		}
	}

	defer func(fin io.ReadCloser) {
		err := fin.Close()
		if err != nil {
			slog.Error("failed to close config file", "file", fname, "err", err)
		}
	}(fin)

	cfg, err := config.Load(fin, fname)
	if err != nil {
		return nil, fmt.Errorf("can't parse config file %s: %w", fname, err)
	}

	return cfg, nil
}

// BuildStore creates the store backend named in cfg.
func BuildStore(ctx context.Context, cfg *config.Config) (store.Interface, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}

	fac, ok := store.Get(cfg.Store.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreBackend, cfg.Store.Backend)
	}

	st, err := fac.Build(ctx, cfg.Store.Parameters)
	if err != nil {
		return nil, fmt.Errorf("can't build %s store: %w", cfg.Store.Backend, err)
	}

	return st, nil
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		cfg := config.Default()
		opts.Config = &cfg
	}

	if opts.Store == nil {
		return nil, ErrNoStore
	}

	if opts.Renderer == nil {
		opts.Renderer = render.New()
	}

	if opts.CookieExpiration == 0 {
		opts.CookieExpiration = glyphcaptcha.CookieDefaultExpirationTime
	}

	if opts.ED25519PrivateKey == nil && len(opts.HS512Secret) == 0 {
		slog.Debug("opts.PrivateKey not set, generating a new one")
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("lib: can't generate private key: %v", err)
		}
		opts.ED25519PrivateKey = priv
	}

	glyphcaptcha.BasePrefix = opts.BasePrefix
	basePrefix := strings.TrimSuffix(glyphcaptcha.BasePrefix, "/")

	// Clips served by this process live under the route prefix.
	cfg := *opts.Config
	if opts.AudioDir != "" {
		cfg.AudioPath = strings.TrimPrefix(glyphcaptcha.RoutePrefix+glyphcaptcha.AudioRoute, "/")
	}

	svc, err := challenge.New(challenge.Options{
		Config:   cfg,
		Store:    opts.Store,
		Renderer: opts.Renderer,
		Audio:    audio.New(basePrefix),
		Clock:    opts.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("lib: can't create challenge service: %w", err)
	}

	cookieName := glyphcaptcha.CookieName

	if opts.CookieDomain != "" {
		cookieName = glyphcaptcha.WithDomainCookieName + opts.CookieDomain
	}

	result := &Server{
		challenges:  svc,
		ed25519Priv: opts.ED25519PrivateKey,
		hs512Secret: opts.HS512Secret,
		opts:        opts,
		cookieName:  cookieName,
	}

	mux := http.NewServeMux()

	// Helper to add global prefix
	registerWithPrefix := func(pattern string, handler http.Handler, method string) {
		if method != "" {
			method = method + " " // methods must end with a space to register with them
		}

		// If pattern doesn't start with a slash, add one
		if !strings.HasPrefix(pattern, "/") {
			pattern = "/" + pattern
		}

		mux.Handle(method+basePrefix+glyphcaptcha.RoutePrefix+pattern, handler)
	}

	api := func(h http.HandlerFunc) http.Handler {
		return internal.GzipMiddleware(1, internal.NoStoreCache(h))
	}

	registerWithPrefix("/generate", api(result.Generate), "GET")
	registerWithPrefix("/refresh", api(result.Generate), "GET")
	registerWithPrefix("/refresh", api(result.Generate), "POST")
	registerWithPrefix("/validate", api(result.Validate), "POST")

	for route, allow := range map[string]string{
		"/generate": "GET",
		"/refresh":  "GET, POST",
		"/validate": "POST",
	} {
		registerWithPrefix(route, result.methodNotAllowed(allow), "")
	}

	if opts.AudioDir != "" {
		stripPrefix := basePrefix + glyphcaptcha.RoutePrefix + glyphcaptcha.AudioRoute
		registerWithPrefix(glyphcaptcha.AudioRoute, internal.UnchangingCache(internal.NoBrowsing(http.StripPrefix(stripPrefix, http.FileServerFS(os.DirFS(opts.AudioDir))))), "GET")
	}

	result.mux = mux

	return result, nil
}
