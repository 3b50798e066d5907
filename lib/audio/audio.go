// Package audio maps challenge codes to the clips a client plays back, one
// per character.
package audio

import (
	"strings"
	"unicode"

	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
)

// Mapper builds clip URLs of the form {Base}/{audio_path}/{char}.{ext}.
// Characters are lower-cased. Clips are not checked for existence.
type Mapper struct {
	Base string
}

func New(base string) *Mapper {
	return &Mapper{Base: strings.TrimSuffix(base, "/")}
}

// Map returns nil when audio is disabled in cfg, otherwise one clip URL per
// character of code in order.
func (m *Mapper) Map(code string, cfg config.Config) []string {
	if !cfg.AudioEnabled {
		return nil
	}

	dir := m.dir(cfg.AudioPath)
	result := make([]string, 0, len(code))

	for _, r := range code {
		result = append(result, dir+"/"+string(unicode.ToLower(r))+"."+cfg.AudioExtension)
	}

	return result
}

func (m *Mapper) dir(audioPath string) string {
	audioPath = strings.TrimSuffix(audioPath, "/")

	if strings.Contains(audioPath, "://") {
		return audioPath
	}

	return m.Base + "/" + strings.TrimPrefix(audioPath, "/")
}
