package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"k8s.io/apimachinery/pkg/util/yaml"
)

var (
	ErrInvalidLength       = errors.New("config: length must be at least 1")
	ErrEmptyAlphabet       = errors.New("config: characters must not be empty")
	ErrInvalidDimensions   = errors.New("config: width and height must be positive")
	ErrInvalidColor        = errors.New("config: color must be an [r, g, b] triple with components between 0 and 255")
	ErrInvalidNoise        = errors.New("config: noise_lines and noise_dots must not be negative")
	ErrInvalidFontSize     = errors.New("config: font_size must be positive")
	ErrInvalidAngleRange   = errors.New("config: angle_min must not be greater than angle_max")
	ErrInvalidExpiry       = errors.New("config: expire must be at least 1 minute")
	ErrMissingSessionKey   = errors.New("config: session_key must not be empty")
	ErrMissingAudioPath    = errors.New("config: audio_path must be set when audio is enabled")
	ErrMissingAudioExt     = errors.New("config: audio_extension must be set when audio is enabled")
	ErrCantDecodeConfigDoc = errors.New("config: can't decode configuration document")
)

// DefaultCharacters is the alphabet codes are drawn from unless configured
// otherwise.
const DefaultCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Config is the captcha policy: how codes are generated, drawn, voiced and
// how long they live. A Config is never mutated after Load returns it.
type Config struct {
	Length          int     `json:"length"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	AudioEnabled    bool    `json:"audio_enabled"`
	Characters      string  `json:"characters"`
	SessionKey      string  `json:"session_key"`
	Expire          int     `json:"expire"`
	BackgroundColor RGB     `json:"background_color"`
	TextColor       RGB     `json:"text_color"`
	LineColor       RGB     `json:"line_color"`
	NoiseLines      int     `json:"noise_lines"`
	NoiseDots       int     `json:"noise_dots"`
	FontSize        float64 `json:"font_size"`
	FontPath        string  `json:"font_path,omitempty"`
	AngleMin        int     `json:"angle_min"`
	AngleMax        int     `json:"angle_max"`
	AudioPath       string  `json:"audio_path"`
	AudioExtension  string  `json:"audio_extension"`
	Store           *Store  `json:"store,omitempty"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Length:          6,
		Width:           200,
		Height:          60,
		AudioEnabled:    true,
		Characters:      DefaultCharacters,
		SessionKey:      "mky_captcha_code",
		Expire:          5,
		BackgroundColor: RGB{255, 255, 255},
		TextColor:       RGB{0, 0, 0},
		LineColor:       RGB{100, 100, 100},
		NoiseLines:      5,
		NoiseDots:       50,
		FontSize:        20,
		AngleMin:        -15,
		AngleMax:        15,
		AudioPath:       "vendor/mky-captcha/audio",
		AudioExtension:  "mp3",
		Store: &Store{
			Backend:    "memory",
			Parameters: json.RawMessage(`{}`),
		},
	}
}

// ExpireAfter is how long a challenge stays valid after issuance.
func (c Config) ExpireAfter() time.Duration {
	return time.Duration(c.Expire) * time.Minute
}

// Alphabet returns the characters codes are drawn from as runes.
func (c Config) Alphabet() []rune {
	return []rune(c.Characters)
}

func (c Config) Valid() error {
	var errs []error

	if c.Length < 1 {
		errs = append(errs, fmt.Errorf("%w, got: %d", ErrInvalidLength, c.Length))
	}

	if len(c.Characters) == 0 {
		errs = append(errs, ErrEmptyAlphabet)
	}

	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w, got: %dx%d", ErrInvalidDimensions, c.Width, c.Height))
	}

	for name, col := range map[string]RGB{
		"background_color": c.BackgroundColor,
		"text_color":       c.TextColor,
		"line_color":       c.LineColor,
	} {
		if err := col.Valid(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.NoiseLines < 0 || c.NoiseDots < 0 {
		errs = append(errs, fmt.Errorf("%w, got: %d lines, %d dots", ErrInvalidNoise, c.NoiseLines, c.NoiseDots))
	}

	if c.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("%w, got: %v", ErrInvalidFontSize, c.FontSize))
	}

	if c.AngleMin > c.AngleMax {
		errs = append(errs, fmt.Errorf("%w, got: [%d, %d]", ErrInvalidAngleRange, c.AngleMin, c.AngleMax))
	}

	if c.Expire < 1 {
		errs = append(errs, fmt.Errorf("%w, got: %d", ErrInvalidExpiry, c.Expire))
	}

	if c.SessionKey == "" {
		errs = append(errs, ErrMissingSessionKey)
	}

	if c.AudioEnabled {
		if c.AudioPath == "" {
			errs = append(errs, ErrMissingAudioPath)
		}

		if c.AudioExtension == "" {
			errs = append(errs, ErrMissingAudioExt)
		}
	}

	if c.Store != nil {
		if err := c.Store.Valid(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) != 0 {
		return fmt.Errorf("config is not valid:\n%w", errors.Join(errs...))
	}

	return nil
}

// Load reads a YAML or JSON configuration document. Keys missing from the
// document keep their Default values.
func Load(fin io.Reader, fname string) (*Config, error) {
	c := Default()

	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCantDecodeConfigDoc, fname, err)
	}

	if err := c.Valid(); err != nil {
		return nil, fmt.Errorf("errors validating captcha config %s: %w", fname, err)
	}

	return &c, nil
}
