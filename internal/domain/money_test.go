package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		want   string
	}{
		{name: "zero", amount: 0, want: "Rp 0"},
		{name: "hundreds", amount: 500, want: "Rp 500"},
		{name: "thousands", amount: 25000, want: "Rp 25,000"},
		{name: "millions", amount: 1500000, want: "Rp 1,500,000"},
		{name: "negative", amount: -75000, want: "-Rp 75,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRupiah(tt.amount))
		})
	}
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(Transaction{Type: TxIncome, Amount: 1000000})
	s.Add(Transaction{Type: TxExpense, Amount: 250000})
	s.Add(Transaction{Type: TxExpense, Amount: 50000})

	assert.Equal(t, int64(1000000), s.Income)
	assert.Equal(t, int64(300000), s.Expense)
	assert.Equal(t, int64(700000), s.Net())
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "70", s.SavingRate().String())
}

func TestSavingRate_NoIncome(t *testing.T) {
	s := Summary{Expense: 5000}
	assert.True(t, s.SavingRate().IsZero())
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, whole int64
		want        int
	}{
		{name: "half", part: 50, whole: 100, want: 50},
		{name: "rounds down", part: 1, whole: 3, want: 33},
		{name: "capped", part: 300, whole: 100, want: 100},
		{name: "zero whole", part: 10, whole: 0, want: 0},
		{name: "negative part", part: -10, whole: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.part, tt.whole); got != tt.want {
				t.Errorf("Percent(%d, %d) = %d, want %d", tt.part, tt.whole, got, tt.want)
			}
		})
	}
}

func TestParsePeriodAndFrequency(t *testing.T) {
	p, ok := ParsePeriod("weekly")
	assert.True(t, ok)
	assert.Equal(t, PeriodWeekly, p)

	_, ok = ParsePeriod("monthly")
	assert.False(t, ok)

	f, ok := ParseFrequency("monthly")
	assert.True(t, ok)
	assert.Equal(t, FrequencyMonthly, f)

	_, ok = ParseFrequency("yearly")
	assert.False(t, ok)
}
