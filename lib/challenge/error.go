package challenge

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyAlphabet  = errors.New("challenge: alphabet is empty")
	ErrInvalidLength  = errors.New("challenge: code length must be at least 1")
	ErrRender         = errors.New("challenge: can't render challenge")
	ErrStore          = errors.New("challenge: store backend failure")
	ErrMissingBackend = errors.New("challenge: missing required collaborator")
)

func NewError(verb, publicReason string, privateReason error) *Error {
	return &Error{
		Verb:          verb,
		PublicReason:  publicReason,
		PrivateReason: privateReason,
		StatusCode:    http.StatusInternalServerError,
	}
}

// Error separates what a client is told from what gets logged.
type Error struct {
	PrivateReason error
	Verb          string
	PublicReason  string
	StatusCode    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("challenge: error when processing challenge: %s: %v", e.Verb, e.PrivateReason)
}

func (e *Error) Unwrap() error {
	return e.PrivateReason
}
