package bench

import (
	"fmt"
	"strconv"
)

// DefaultTestSize is the memory test size in bytes when none is given.
const DefaultTestSize int64 = 512_000_000

// ParseTestSize parses a memory test size argument: a non-negative
// integer byte count with an optional M/m (×1e6) or G/g (×1e9) suffix.
// Any other suffix is rejected, naming the offending text.
func ParseTestSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("size %q does not start with a number", s)
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	switch suffix := s[i:]; suffix {
	case "":
		return n, nil
	case "M", "m":
		return n * 1_000_000, nil
	case "G", "g":
		return n * 1_000_000_000, nil
	default:
		return 0, fmt.Errorf("unidentified size suffix %q", suffix)
	}
}
