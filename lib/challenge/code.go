package challenge

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// GenerateCode draws length characters uniformly and independently from
// alphabet using a cryptographically secure source.
func GenerateCode(alphabet []rune, length int) (string, error) {
	if len(alphabet) == 0 {
		return "", ErrEmptyAlphabet
	}

	if length < 1 {
		return "", fmt.Errorf("%w, got: %d", ErrInvalidLength, length)
	}

	size := big.NewInt(int64(len(alphabet)))

	var sb strings.Builder
	sb.Grow(length)

	for range length {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("challenge: can't read random data: %w", err)
		}
		sb.WriteRune(alphabet[n.Int64()])
	}

	return sb.String(), nil
}
