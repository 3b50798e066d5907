// Package render draws challenge codes into noisy PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/gogpu/gg/text"
	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	ErrBadFont      = errors.New("render: can't load font")
	ErrMissingGlyph = errors.New("render: font has no glyph for character")
	ErrEncode       = errors.New("render: can't encode image")
)

// Renderer turns codes into PNG images. Parsed fonts are cached by path;
// rendered images never are.
type Renderer struct {
	lock  sync.Mutex
	fonts map[string]*text.FontSource
}

func New() *Renderer {
	return &Renderer{
		fonts: map[string]*text.FontSource{},
	}
}

// Render draws code according to cfg and returns the PNG bytes. Every call
// uses fresh randomness.
func (r *Renderer) Render(code string, cfg config.Config) ([]byte, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w, got: %dx%d", config.ErrInvalidDimensions, cfg.Width, cfg.Height)
	}

	font, err := r.font(cfg.FontPath)
	if err != nil {
		return nil, err
	}

	canvas := NewGGCanvas(cfg.Width, cfg.Height, font, cfg.FontSize)
	defer canvas.Close()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	if err := Draw(canvas, code, cfg, rng); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return buf.Bytes(), nil
}

func (r *Renderer) font(path string) (*text.FontSource, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if src, ok := r.fonts[path]; ok {
		return src, nil
	}

	var (
		src *text.FontSource
		err error
	)

	switch path {
	case "":
		src, err = text.NewFontSource(goregular.TTF)
	default:
		src, err = text.NewFontSourceFromFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBadFont, path, err)
	}

	r.fonts[path] = src
	return src, nil
}

// Draw composes the challenge image for code on c. The background goes
// first, then noise lines, then noise dots, then the glyphs. Glyph i of n
// is centered on x = (i+1)*(width/(n+1)) and on a line 70% of the way down,
// jittered by up to 5 pixels, and tilted by a whole number of degrees
// between cfg.AngleMin and cfg.AngleMax.
func Draw(c Canvas, code string, cfg config.Config, rng *rand.Rand) error {
	if cfg.AngleMin > cfg.AngleMax {
		return fmt.Errorf("%w, got: [%d, %d]", config.ErrInvalidAngleRange, cfg.AngleMin, cfg.AngleMax)
	}

	c.Fill(cfg.BackgroundColor)

	for range cfg.NoiseLines {
		x1, y1 := rng.IntN(cfg.Width+1), rng.IntN(cfg.Height+1)
		x2, y2 := rng.IntN(cfg.Width+1), rng.IntN(cfg.Height+1)

		if err := c.Line(float64(x1), float64(y1), float64(x2), float64(y2), cfg.LineColor); err != nil {
			return fmt.Errorf("render: can't draw noise line: %w", err)
		}
	}

	for range cfg.NoiseDots {
		c.Pixel(rng.IntN(cfg.Width), rng.IntN(cfg.Height), config.RGB{rng.IntN(256), rng.IntN(256), rng.IntN(256)})
	}

	glyphs := []rune(code)
	middle := int(float64(cfg.Height) * 0.7)
	step := float64(cfg.Width) / float64(len(glyphs)+1)

	for i, g := range glyphs {
		x := float64(i+1) * step
		y := middle + rng.IntN(11) - 5
		angle := cfg.AngleMin + rng.IntN(cfg.AngleMax-cfg.AngleMin+1)

		if err := c.Glyph(g, x, float64(y), float64(angle), cfg.TextColor); err != nil {
			return err
		}
	}

	return nil
}
