package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatRupiah renders an amount as "Rp 1,500,000".
func FormatRupiah(amount int64) string {
	if amount < 0 {
		return printer.Sprintf("-Rp %d", -amount)
	}
	return printer.Sprintf("Rp %d", amount)
}

// SavingRate returns net/income as a percentage rounded to one decimal.
// It is zero when there is no income.
func (s Summary) SavingRate() decimal.Decimal {
	if s.Income == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.Net()).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(s.Income)).
		Round(1)
}

// Percent returns part/whole as an integer percentage capped at 100.
func Percent(part, whole int64) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	p := decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(whole)).IntPart()
	if p > 100 {
		return 100
	}
	return int(p)
}
