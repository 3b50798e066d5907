package challenge

import (
	"encoding/base64"
	"time"
)

// Challenge is the record kept for a session between issuance and
// validation.
type Challenge struct {
	Code     string    `json:"code"`     // The expected answer, stored as generated
	IssuedAt time.Time `json:"issuedAt"` // When the challenge was issued
}

// Artifact is what a client gets when a challenge is issued. It is never
// stored.
type Artifact struct {
	Image []byte   // PNG bytes
	Audio []string // One clip reference per character, nil when audio is disabled
}

// DataURI returns the image as a data:image/png;base64 URI.
func (a *Artifact) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(a.Image)
}
