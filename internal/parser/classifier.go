package parser

import (
	"strings"

	"github.com/dvloznov/finance-bot/internal/domain"
)

// OtherCategory is assigned when no rule matches.
const OtherCategory = "other"

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Classifier decides the type and category of a message from keyword lists.
// Rules are evaluated in order and the first match wins.
type Classifier struct {
	incomeKeywords []string
	rules          []Rule
}

// DefaultIncomeKeywords mark a message as income.
var DefaultIncomeKeywords = []string{"gaji", "salary", "masuk"}

// DefaultRules is the built-in category table.
var DefaultRules = []Rule{
	{Category: "makan", Keywords: []string{"makan", "sarapan", "lunch", "dinner", "kopi", "jajan"}},
	{Category: "transport", Keywords: []string{"bensin", "grab", "gojek", "ojek", "transport", "tj", "mrt", "krl", "lrt"}},
	{Category: "belanja", Keywords: []string{"belanja", "shopping", "market"}},
	{Category: "hiburan", Keywords: []string{"nonton", "movie", "game"}},
}

// NewClassifier builds a classifier. Keywords are lowercased and blanks dropped.
func NewClassifier(incomeKeywords []string, rules []Rule) *Classifier {
	c := &Classifier{incomeKeywords: normalize(incomeKeywords)}
	for _, r := range rules {
		c.rules = append(c.rules, Rule{
			Category: strings.ToLower(strings.TrimSpace(r.Category)),
			Keywords: normalize(r.Keywords),
		})
	}
	return c
}

// DefaultClassifier uses the built-in keyword tables.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultIncomeKeywords, DefaultRules)
}

// Classify expects lowercased text.
func (c *Classifier) Classify(text string) (domain.TxType, string) {
	typ := domain.TxExpense
	if containsAny(text, c.incomeKeywords) {
		typ = domain.TxIncome
	}

	for _, r := range c.rules {
		if containsAny(text, r.Keywords) {
			return typ, r.Category
		}
	}
	return typ, OtherCategory
}

// Categories lists the rule categories in evaluation order.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return out
}

// IsCategory reports whether name is one of the rule categories.
func (c *Classifier) IsCategory(name string) bool {
	name = strings.ToLower(name)
	for _, r := range c.rules {
		if r.Category == name {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
