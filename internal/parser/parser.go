// Package parser turns free-form chat text into transactions.
package parser

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-bot/internal/domain"
)

// Parser combines amount extraction and keyword classification.
type Parser struct {
	classifier *Classifier
}

// New returns a parser using c, or the default tables when c is nil.
func New(c *Classifier) *Parser {
	if c == nil {
		c = DefaultClassifier()
	}
	return &Parser{classifier: c}
}

// Classifier exposes the keyword tables in use.
func (p *Parser) Classifier() *Classifier {
	return p.classifier
}

// Parse has no side effects. Timestamp, Sender and MessageID are left for the caller.
func (p *Parser) Parse(text string) (domain.Transaction, error) {
	lower := strings.ToLower(strings.TrimSpace(text))

	amount, err := ExtractAmount(lower)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Parse: %w", err)
	}

	typ, category := p.classifier.Classify(lower)
	return domain.Transaction{
		Type:     typ,
		Category: category,
		Amount:   amount,
		Note:     text,
	}, nil
}
