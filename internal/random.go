package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

const (
	MinCodeDigits = 6
	MaxCodeDigits = 10
)

var codeUpperBounds = func() [MaxCodeDigits + 1]*big.Int {
	var out [MaxCodeDigits + 1]*big.Int
	for d := MinCodeDigits; d <= MaxCodeDigits; d++ {
		out[d] = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
	}
	return out
}()

// NewCode draws a uniformly random integer in [0, 10^digits) and renders it
// as a zero-padded decimal string of exactly digits characters.
func NewCode(digits int) (string, error) {
	if digits < MinCodeDigits || digits > MaxCodeDigits {
		return "", errors.New("invalid code digits")
	}

	n, err := rand.Int(rand.Reader, codeUpperBounds[digits])
	if err != nil {
		return "", err
	}

	raw := strconv.FormatUint(n.Uint64(), 10)
	if len(raw) > digits {
		return "", errors.New("invalid code generation length")
	}
	return strings.Repeat("0", digits-len(raw)) + raw, nil
}

// IsDecimal reports whether s is non-empty and made only of ASCII digits.
func IsDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
