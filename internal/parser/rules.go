package parser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleSet is the on-disk form of the keyword tables.
type RuleSet struct {
	IncomeKeywords []string `yaml:"income_keywords"`
	Categories     []Rule   `yaml:"categories"`
}

// LoadRuleSet reads a YAML keyword table from disk.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRuleSet: reading %s: %w", path, err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("LoadRuleSet: parsing %s: %w", path, err)
	}
	if len(rs.Categories) == 0 {
		return nil, fmt.Errorf("LoadRuleSet: %s defines no categories", path)
	}
	for i, r := range rs.Categories {
		if r.Category == "" || len(r.Keywords) == 0 {
			return nil, fmt.Errorf("LoadRuleSet: category #%d needs a name and keywords", i+1)
		}
	}
	if len(rs.IncomeKeywords) == 0 {
		rs.IncomeKeywords = DefaultIncomeKeywords
	}
	return &rs, nil
}

// Classifier builds a classifier from the rule set.
func (rs *RuleSet) Classifier() *Classifier {
	return NewClassifier(rs.IncomeKeywords, rs.Categories)
}
