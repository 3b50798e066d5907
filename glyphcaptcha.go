// Package glyphcaptcha contains the version number and the process-wide defaults
// of the glyph captcha service.
package glyphcaptcha

import "time"

// Version is the current version of glyphcaptcha.
//
// This variable is set at build time using the -X linker flag. If not set,
// it defaults to "devel".
var Version = "devel"

// CookieName is the name of the cookie that carries the signed session
// identifier a challenge is bound to.
var CookieName = "mky-captcha-session"

// WithDomainCookieName is the prefix used for the session cookie when a
// cookie domain is configured.
var WithDomainCookieName = "mky-captcha-session-for-"

// CookieDefaultExpirationTime is the amount of time a session cookie is
// valid for.
const CookieDefaultExpirationTime = 2 * time.Hour

// BasePrefix is a global prefix for all routes served by the server.
var BasePrefix = ""

// ForcedLanguage is the language used instead of the one from the request's
// Accept-Language header, if set.
var ForcedLanguage = ""

// RoutePrefix is the path all captcha API routes are mounted under.
const RoutePrefix = "/mky-captcha"

// AudioRoute is the path, below RoutePrefix, that audio clips are served from
// when the server is configured with an audio directory.
const AudioRoute = "/audio/"

// DefaultLength is the number of characters in a challenge code when no
// configuration overrides it.
const DefaultLength = 6
