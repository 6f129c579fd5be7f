package category

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// RuleSet maps history keywords to categories.
type RuleSet struct {
	Default string `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// LoadRules reads a rules file, or the built-in rules when path is empty.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}

	return ParseRules(data)
}

func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}

	for i, r := range rs.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("category rule %d has no category", i)
		}

		for j, k := range r.Keywords {
			rs.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}

	return &rs, nil
}

// Match returns the category of the longest keyword found in history, or the
// default category. Earlier rules win ties.
func (rs *RuleSet) Match(history string) string {
	history = strings.ToLower(history)

	best, bestLen := rs.Default, 0

	for _, r := range rs.Rules {
		for _, k := range r.Keywords {
			if k != "" && len(k) > bestLen && strings.Contains(history, k) {
				best, bestLen = r.Category, len(k)
			}
		}
	}

	return best
}
