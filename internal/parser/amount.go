package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoAmount is returned when the text carries no numeric token.
	ErrNoAmount = errors.New("no amount found")
	// ErrInvalidAmount is returned when the numeric token cannot be represented.
	ErrInvalidAmount = errors.New("invalid amount")
)

// amountPattern matches digits with optional "." or "," groups and an optional
// trailing "k". "1.500.000" is one token, not three.
var amountPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*k?`)

var (
	separators = strings.NewReplacer(".", "", ",", "")
	thousand   = decimal.NewFromInt(1000)
	maxAmount  = decimal.NewFromInt(math.MaxInt64)
)

// ExtractAmount returns the Rupiah amount carried by the last numeric token in text.
func ExtractAmount(text string) (int64, error) {
	matches := amountPattern.FindAllString(strings.ToLower(text), -1)
	if len(matches) == 0 {
		return 0, ErrNoAmount
	}
	token := matches[len(matches)-1]

	if prefix, ok := strings.CutSuffix(token, "k"); ok {
		return thousands(prefix)
	}

	n, err := strconv.ParseInt(separators.Replace(token), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ExtractAmount: %q: %w", token, ErrInvalidAmount)
	}
	return n, nil
}

// thousands reads prefix as a decimal number of thousands ("2.5" or "2,5").
// Prefixes with several separator groups fall back to plain grouping.
func thousands(prefix string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(prefix, ",", "."))
	if err != nil {
		d, err = decimal.NewFromString(separators.Replace(prefix))
		if err != nil {
			return 0, fmt.Errorf("ExtractAmount: %qk: %w", prefix, ErrInvalidAmount)
		}
	}

	v := d.Mul(thousand)
	if v.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("ExtractAmount: %qk: %w", prefix, ErrInvalidAmount)
	}
	return v.IntPart(), nil
}
