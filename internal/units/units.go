// Package units converts between integer base units (wei, micro-USDC) and
// human readable decimal strings.
package units

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	EtherDecimals = 18
	USDCDecimals  = 6
)

// ParseInteger parses a positive base-10 integer such as a wei amount.
func ParseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", s)
	}
	return v, nil
}

// ParseUnits parses a decimal string ("2000", "1999.5") into base units with the
// given number of decimals. Extra fractional digits are rejected.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		return nil, fmt.Errorf("%q has more than %d decimals", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	return v, nil
}

// FormatUnits renders v as a decimal with trailing fractional zeros trimmed.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// FormatUSDC keeps at least one fractional digit, so whole dollars read "2.0".
func FormatUSDC(v *big.Int) string {
	out := FormatUnits(v, USDCDecimals)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// ApplyBps returns floor(v * bps / 10000).
func ApplyBps(v *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(bps))
	return out.Quo(out, big.NewInt(10_000))
}
