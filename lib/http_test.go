package lib

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkyhq/glyphcaptcha"
	"github.com/mkyhq/glyphcaptcha/lib/challenge/challengetest"
	"github.com/mkyhq/glyphcaptcha/lib/store/memory"
)

func spawnServer(t *testing.T, opts Options) *Server {
	t.Helper()

	if opts.Store == nil {
		opts.Store = memory.New(t.Context())
	}

	if opts.Renderer == nil {
		opts.Renderer = &challengetest.Renderer{}
	}

	s, err := New(opts)
	if err != nil {
		t.Fatalf("can't construct server: %v", err)
	}

	t.Cleanup(func() { glyphcaptcha.BasePrefix = "" })

	return s
}

func TestSetCookie(t *testing.T) {
	for _, tt := range []struct {
		name       string
		options    Options
		host       string
		cookieName string
		domain     string
	}{
		{
			name:       "basic",
			options:    Options{},
			host:       "",
			cookieName: glyphcaptcha.CookieName,
		},
		{
			name:       "domain example.com",
			options:    Options{CookieDomain: "example.com"},
			host:       "",
			cookieName: glyphcaptcha.WithDomainCookieName + "example.com",
			domain:     "example.com",
		},
		{
			name:       "dynamic cookie domain",
			options:    Options{CookieDynamicDomain: true},
			host:       "forms.shop.example.co.uk",
			cookieName: glyphcaptcha.CookieName,
			domain:     "example.co.uk",
		},
		{
			name:       "dynamic cookie domain with IP host",
			options:    Options{CookieDynamicDomain: true},
			host:       "127.0.0.1",
			cookieName: glyphcaptcha.CookieName,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := spawnServer(t, tt.options)
			rw := httptest.NewRecorder()

			srv.SetCookie(rw, CookieOpts{Value: "test", Host: tt.host})

			resp := rw.Result()
			cookies := resp.Cookies()

			if len(cookies) != 1 {
				t.Fatalf("wanted 1 cookie, got %d cookies", len(cookies))
			}

			ckie := cookies[0]

			if ckie.Name != tt.cookieName {
				t.Errorf("wanted cookie named %q, got cookie named %q", tt.cookieName, ckie.Name)
			}

			if ckie.Domain != tt.domain {
				t.Errorf("wanted cookie domain %q, got: %q", tt.domain, ckie.Domain)
			}

			if !ckie.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		})
	}
}

func TestClearCookie(t *testing.T) {
	for _, tt := range []struct {
		name       string
		options    Options
		host       string
		cookieName string
		domain     string
	}{
		{
			name:       "basic",
			host:       "localhost",
			cookieName: glyphcaptcha.CookieName,
		},
		{
			name:       "with domain",
			options:    Options{CookieDomain: "example.com"},
			host:       "localhost",
			cookieName: glyphcaptcha.WithDomainCookieName + "example.com",
			domain:     "example.com",
		},
		{
			name:       "with dynamic domain",
			options:    Options{CookieDynamicDomain: true},
			host:       "subdomain.example.net",
			cookieName: glyphcaptcha.CookieName,
			domain:     "example.net",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := spawnServer(t, tt.options)
			rw := httptest.NewRecorder()

			srv.ClearCookie(rw, CookieOpts{Host: tt.host})

			cookies := rw.Result().Cookies()

			if len(cookies) != 1 {
				t.Fatalf("wanted 1 cookie, got %d cookies", len(cookies))
			}

			ckie := cookies[0]

			if ckie.Name != tt.cookieName {
				t.Errorf("wanted cookie named %q, got cookie named %q", tt.cookieName, ckie.Name)
			}

			if ckie.MaxAge != -1 {
				t.Errorf("wanted cookie max age of -1, got: %d", ckie.MaxAge)
			}

			if ckie.Domain != tt.domain {
				t.Errorf("wanted cookie domain %q, got: %q", tt.domain, ckie.Domain)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name    string
		options Options
		alg     string
	}{
		{
			name: "generated ed25519 key",
			alg:  jwt.SigningMethodEdDSA.Alg(),
		},
		{
			name:    "hs512 secret",
			options: Options{HS512Secret: []byte("hunter2hunter2hunter2hunter2")},
			alg:     jwt.SigningMethodHS512.Alg(),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := spawnServer(t, tt.options)

			if got := srv.signingMethod().Alg(); got != tt.alg {
				t.Errorf("wanted signing method %s, got: %s", tt.alg, got)
			}

			rw := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/mky-captcha/generate", nil)

			sid, err := srv.startSession(rw, req)
			if err != nil {
				t.Fatal(err)
			}

			req = httptest.NewRequest(http.MethodPost, "/mky-captcha/validate", nil)
			for _, ckie := range rw.Result().Cookies() {
				req.AddCookie(ckie)
			}

			got, err := srv.session(req)
			if err != nil {
				t.Fatalf("can't read back session: %v", err)
			}

			if got != sid {
				t.Errorf("wanted session %q, got: %q", sid, got)
			}
		})
	}
}

func TestSessionRejectsForeignSigner(t *testing.T) {
	signer := spawnServer(t, Options{})
	verifier := spawnServer(t, Options{})

	rw := httptest.NewRecorder()
	if _, err := signer.startSession(rw, httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, ckie := range rw.Result().Cookies() {
		req.AddCookie(ckie)
	}

	if _, err := verifier.session(req); err == nil {
		t.Fatal("a session signed with another key must not be accepted")
	}
}

func TestSessionRejectsWrongClaims(t *testing.T) {
	srv := spawnServer(t, Options{})

	for _, tt := range []struct {
		name   string
		claims jwt.MapClaims
	}{
		{
			name:   "missing sid",
			claims: jwt.MapClaims{},
		},
		{
			name:   "sid is a number",
			claims: jwt.MapClaims{"sid": 42},
		},
		{
			name:   "sid is not a uuid",
			claims: jwt.MapClaims{"sid": "taco"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := srv.signJWT(tt.claims)
			if err != nil {
				t.Fatal(err)
			}

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.AddCookie(&http.Cookie{Name: srv.cookieName, Value: tok})

			if _, err := srv.session(req); err == nil {
				t.Error("wanted an error")
			}
		})
	}
}
