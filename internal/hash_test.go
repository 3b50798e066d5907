package internal

import (
	"fmt"
	"testing"
)

func BenchmarkFastHash(b *testing.B) {
	for i := 0; b.Loop(); i++ {
		_ = FastHash(fmt.Sprintf("mky_captcha_code:%016x", i))
	}
}

// Session keys differ only in their trailing UUID, so check that such
// near-identical inputs don't collide.
func TestFastHashCollisions(t *testing.T) {
	seen := map[string]string{}

	for i := range 50000 {
		input := fmt.Sprintf("mky_captcha_code:0198f3c2-7a5e-7%03x-8000-%012x", i%4096, i)
		hash := FastHash(input)
		if existing, ok := seen[hash]; ok {
			t.Fatalf("collision: %q and %q both hash to %s", input, existing, hash)
		}
		seen[hash] = input
	}
}

func TestFastHashFormat(t *testing.T) {
	for _, input := range []string{
		"",
		"short",
		"mky_captcha_code:0198f3c2-7a5e-7000-8000-000000000000",
	} {
		hash := FastHash(input)

		if len(hash) == 0 || len(hash) > 16 {
			t.Errorf("hash %q for input %q has the wrong length", hash, input)
		}

		for _, char := range hash {
			if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f')) {
				t.Errorf("non-hex character %c in hash %s for input %q", char, hash, input)
			}
		}
	}
}
