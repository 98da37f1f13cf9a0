package finaid

import (
	"fmt"
	"strconv"
	"strings"
)

// The at-rest form of a financial index is a tagged, offset base-36
// rendering: "fx1." followed by (value + 1500) in base 36. The offset keeps
// every on-scale value non-negative so the encoded text never leaks the
// sign of the raw index. The transform is an exact round-trip for every
// integer on the scale, and Decode also accepts pre-migration rows that
// stored the plain decimal integer.
const (
	cipherPrefix = "fx1."
	cipherOffset = 1500
)

// DecodeError indicates a stored financial index is neither valid
// ciphertext nor a parseable plaintext integer.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode financial index: %s", e.Reason)
}

// Encode converts a raw financial index into its at-rest form.
func Encode(value int) string {
	return cipherPrefix + strconv.FormatInt(int64(value)+cipherOffset, 36)
}

// Decode converts an at-rest financial index back to its raw value. Legacy
// plaintext integers are returned unchanged so historical rows stay
// readable without a backfill migration.
func Decode(stored string) (int, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return 0, &DecodeError{Reason: "empty input"}
	}
	if rest, ok := strings.CutPrefix(stored, cipherPrefix); ok {
		n, err := strconv.ParseInt(rest, 36, 64)
		if err != nil {
			return 0, &DecodeError{Reason: "malformed ciphertext"}
		}
		return int(n - cipherOffset), nil
	}
	// Legacy unencoded row.
	n, err := strconv.Atoi(stored)
	if err != nil {
		return 0, &DecodeError{Reason: "not ciphertext and not a plain integer"}
	}
	return n, nil
}
