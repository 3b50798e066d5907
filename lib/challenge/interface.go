package challenge

import "github.com/mkyhq/glyphcaptcha/lib/policy/config"

// Renderer draws a code into an encoded image.
type Renderer interface {
	Render(code string, cfg config.Config) ([]byte, error)
}

// AudioMapper turns a code into an ordered list of per-character clip
// references. It returns nil when audio is disabled.
type AudioMapper interface {
	Map(code string, cfg config.Config) []string
}
