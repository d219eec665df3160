package util

import (
	"fmt"
	"math/big"
	"strings"
)

// unitDecimals maps the denominations accepted by FromWei and ToWei to their power of ten.
var unitDecimals = map[string]int{
	"wei":    0,
	"kwei":   3,
	"mwei":   6,
	"gwei":   9,
	"szabo":  12,
	"finney": 15,
	"ether":  18,
}

func decimalsFor(unit string) (int, error) {
	d, ok := unitDecimals[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
	return d, nil
}

// FromWei formats wei in unit without losing precision, e.g. 123456789123456789 wei
// is "0.123456789123456789" ether. Trailing fractional zeros are dropped.
func FromWei(wei *big.Int, unit string) (string, error) {
	if wei == nil {
		return "", fmt.Errorf("wei amount is nil")
	}
	decimals, err := decimalsFor(unit)
	if err != nil {
		return "", err
	}

	sign := ""
	abs := new(big.Int).Set(wei)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	if decimals == 0 {
		return sign + abs.String(), nil
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, divisor, new(big.Int))

	fracStr := frac.String()
	fracStr = strings.TrimRight(strings.Repeat("0", decimals-len(fracStr))+fracStr, "0")
	if fracStr == "" {
		return sign + whole.String(), nil
	}
	return sign + whole.String() + "." + fracStr, nil
}

// ToWei parses a decimal amount in unit into wei. More fractional digits than
// the unit allows is an error rather than a silent truncation.
func ToWei(amount string, unit string) (*big.Int, error) {
	decimals, err := decimalsFor(unit)
	if err != nil {
		return nil, err
	}

	amount = strings.TrimSpace(amount)
	negative := strings.HasPrefix(amount, "-")
	amount = strings.TrimPrefix(amount, "-")

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid amount %q", amount)
		}
	}

	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if negative {
		wei.Neg(wei)
	}
	return wei, nil
}
