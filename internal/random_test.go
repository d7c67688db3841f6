package internal

import (
	"testing"
)

func TestNewCodeWidthAndDigits(t *testing.T) {
	for digits := MinCodeDigits; digits <= MaxCodeDigits; digits++ {
		for i := 0; i < 200; i++ {
			code, err := NewCode(digits)
			if err != nil {
				t.Fatalf("NewCode(%d) failed: %v", digits, err)
			}
			if len(code) != digits {
				t.Fatalf("expected %d characters, got %q", digits, code)
			}
			if !IsDecimal(code) {
				t.Fatalf("expected decimal code, got %q", code)
			}
		}
	}
}

func TestNewCodeRejectsInvalidDigits(t *testing.T) {
	for _, digits := range []int{-1, 0, 5, 11} {
		if _, err := NewCode(digits); err == nil {
			t.Fatalf("expected error for %d digits", digits)
		}
	}
}

func TestNewCodeProducesLeadingZeros(t *testing.T) {
	// With 6 digits roughly 10% of draws start with '0'.
	for i := 0; i < 5000; i++ {
		code, err := NewCode(6)
		if err != nil {
			t.Fatalf("NewCode failed: %v", err)
		}
		if code[0] == '0' {
			return
		}
	}
	t.Fatal("expected at least one zero-padded code in 5000 draws")
}

// FuzzIsDecimal checks IsDecimal against a byte-wise reference.
func FuzzIsDecimal(f *testing.F) {
	f.Add("")
	f.Add("123456789012345678")
	f.Add("12345678901234567a")
	f.Add("１２３")
	f.Add("-1")

	f.Fuzz(func(t *testing.T, s string) {
		want := len(s) > 0
		for _, r := range []byte(s) {
			if r < '0' || r > '9' {
				want = false
			}
		}
		if got := IsDecimal(s); got != want {
			t.Fatalf("IsDecimal(%q)=%v want %v", s, got, want)
		}
	})
}
