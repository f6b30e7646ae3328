package utils

import (
	"fmt"

	"linkup/apperrors"
)

// PairKey maps an unordered user pair to one deterministic identifier: the
// two ids lexicographically sorted and joined, with the first id's length
// prefixed so ids containing the separator cannot collide. It is the lock
// key for the pair's match guard, so PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("%w: empty user id", apperrors.ErrInvalidInput)
	}
	if a == b {
		return "", fmt.Errorf("%w: cannot pair user %s with themselves", apperrors.ErrInvalidInput, a)
	}
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%s_%s", len(a), a, b), nil
}
