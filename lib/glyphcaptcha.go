package lib

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkyhq/glyphcaptcha"
	"github.com/mkyhq/glyphcaptcha/internal"
	"github.com/mkyhq/glyphcaptcha/lib/challenge"
	"github.com/mkyhq/glyphcaptcha/lib/localization"
)

// FieldName is the form or JSON field an answer is submitted in.
const FieldName = "captcha"

var (
	ErrNoSession      = errors.New("lib: no session cookie")
	ErrInvalidSession = errors.New("lib: invalid session cookie")
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glyphcaptcha_sessions_created",
		Help: "The total number of captcha sessions handed out",
	})

	answersChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyphcaptcha_answers_checked",
		Help: "The total number of answers checked over HTTP",
	}, []string{"valid"})
)

type Server struct {
	mux         *http.ServeMux
	challenges  *challenge.Service
	cookieName  string
	ed25519Priv ed25519.PrivateKey
	hs512Secret []byte
	opts        Options
}

type issueResponse struct {
	Success bool     `json:"success"`
	Image   string   `json:"image"`
	Audio   []string `json:"audio"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Generate issues a fresh challenge for the caller's session, starting a
// session first if needed. It serves both the generate and refresh routes.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)
	localizer := localization.GetLocalizer(r)

	sid, err := s.session(r)
	if err != nil {
		lg.Debug("starting new session", "reason", err)

		sid, err = s.startSession(w, r)
		if err != nil {
			s.respondWithError(w, r, challenge.NewError("startSession", localizer.T("internal_server_error"), err))
			return
		}
	}

	lg = lg.With("session", internal.FastHash(sid))

	art, err := s.challenges.Issue(r.Context(), sid, 0)
	if err != nil {
		s.respondWithError(w, r, challenge.NewError("issue", localizer.T("captcha_generate_failed"), err))
		return
	}

	lg.Debug("issued challenge", "audio", art.Audio != nil)

	s.respondJSON(w, r, http.StatusOK, issueResponse{
		Success: true,
		Image:   art.DataURI(),
		Audio:   art.Audio,
	})
}

// Validate checks the submitted answer against the session's challenge.
// The challenge is used up either way.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	lg := internal.GetRequestLogger(r)
	localizer := localization.GetLocalizer(r)

	answer, err := readAnswer(w, r)
	if err != nil {
		lg.Debug("can't read answer", "err", err)
	}

	valid := false

	sid, err := s.session(r)
	switch {
	case errors.Is(err, ErrInvalidSession):
		lg.Debug("clearing unusable session", "reason", err)
		s.ClearCookie(w, CookieOpts{Host: r.Host, Path: cookiePath()})
	case err != nil:
		lg.Debug("validation without a session", "reason", err)
	default:
		valid = s.challenges.Rule(r.Context(), sid)(answer)
	}

	answersChecked.WithLabelValues(fmt.Sprint(valid)).Inc()

	if !valid {
		s.respondJSON(w, r, http.StatusUnprocessableEntity, validateResponse{
			Message: localizer.TD("captcha_invalid", map[string]any{"Attribute": FieldName}),
		})
		return
	}

	s.respondJSON(w, r, http.StatusOK, validateResponse{Valid: true})
}

func readAnswer(w http.ResponseWriter, r *http.Request) (string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "application/json" {
		return strings.TrimSpace(r.FormValue(FieldName)), nil
	}

	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		return "", fmt.Errorf("can't decode JSON body: %w", err)
	}

	answer, _ := body[FieldName].(string)
	return strings.TrimSpace(answer), nil
}

// session returns the session ID carried by the request's cookie.
func (s *Server) session(r *http.Request) (string, error) {
	ckie, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", ErrNoSession
	}

	token, err := jwt.ParseWithClaims(ckie.Value, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		if len(s.hs512Secret) == 0 {
			return s.ed25519Priv.Public(), nil
		}
		return s.hs512Secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithStrictDecoding(), jwt.WithValidMethods([]string{s.signingMethod().Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: wrong claims type", ErrInvalidSession)
	}

	sid, ok := claims["sid"].(string)
	if !ok {
		return "", fmt.Errorf("%w: sid claim is not a string", ErrInvalidSession)
	}

	if _, err := uuid.Parse(sid); err != nil {
		return "", fmt.Errorf("%w: sid claim is not a UUID: %w", ErrInvalidSession, err)
	}

	return sid, nil
}

// startSession hands the client a new signed session cookie.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("can't generate session ID: %w", err)
	}
	sid := id.String()

	tokenString, err := s.signJWT(jwt.MapClaims{"sid": sid})
	if err != nil {
		return "", fmt.Errorf("can't sign session: %w", err)
	}

	s.SetCookie(w, CookieOpts{
		Value: tokenString,
		Host:  r.Host,
		Path:  cookiePath(),
	})

	sessionsCreated.Inc()
	return sid, nil
}

func cookiePath() string {
	if glyphcaptcha.BasePrefix != "" {
		return strings.TrimSuffix(glyphcaptcha.BasePrefix, "/") + "/"
	}

	return "/"
}
