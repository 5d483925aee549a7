package session

import (
	"fmt"
	"strconv"
	"strings"
)

// OptionIndex canonicalizes a stored answer encoding to a zero-based option
// index. Historic data encodes the correct choice inconsistently: as a
// numeric index ("0", "2"), or as a letter label ("A", "b"). The canonical
// encoding everywhere past the store boundary is the numeric index; this is
// the single place the mapping lives.
func OptionIndex(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, fmt.Errorf("normalize: empty answer encoding")
	}

	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("normalize: negative option index %d", n)
		}
		return n, nil
	}

	if len(v) == 1 {
		c := v[0]
		switch {
		case c >= 'A' && c <= 'Z':
			return int(c - 'A'), nil
		case c >= 'a' && c <= 'z':
			return int(c - 'a'), nil
		}
	}

	return 0, fmt.Errorf("normalize: unrecognized answer encoding %q", raw)
}
