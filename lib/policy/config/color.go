package config

import (
	"encoding/json"
	"fmt"
)

// RGB is a color as three 0-255 components.
type RGB [3]int

func (c *RGB) UnmarshalJSON(data []byte) error {
	var components []int
	if err := json.Unmarshal(data, &components); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidColor, err)
	}

	if len(components) != 3 {
		return fmt.Errorf("%w, got %d components", ErrInvalidColor, len(components))
	}

	copy(c[:], components)
	return nil
}

func (c RGB) Valid() error {
	for _, v := range c {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w, got: %v", ErrInvalidColor, [3]int(c))
		}
	}

	return nil
}

// Floats returns the components scaled to 0..1.
func (c RGB) Floats() (r, g, b float64) {
	return float64(c[0]) / 255, float64(c[1]) / 255, float64(c[2]) / 255
}
