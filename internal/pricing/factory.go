package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// Factory maps item codes to their pricing rule. It is filled once during
// configuration and only read while a checkout session runs.
type Factory struct {
	rules map[string]Rule
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{rules: make(map[string]Rule)}
}

// NormalizeCode trims surrounding whitespace from an item code.
// A code that is empty after trimming is invalid.
func NormalizeCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("sku cannot be empty: %w", ErrInvalidValue)
	}
	return trimmed, nil
}

// AddRule registers rule for code, replacing any previous rule for the same code.
func (f *Factory) AddRule(code string, rule Rule) error {
	key, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("pricing rule for %q is required: %w", key, ErrMissingValue)
	}
	if f.rules == nil {
		f.rules = make(map[string]Rule)
	}
	f.rules[key] = rule
	return nil
}

// GetRule returns the rule for code. The boolean is false when no rule is
// registered, which is not an error.
func (f *Factory) GetRule(code string) (Rule, bool, error) {
	key, err := NormalizeCode(code)
	if err != nil {
		return nil, false, err
	}
	rule, ok := f.rules[key]
	return rule, ok, nil
}

// HasRule reports whether a rule is registered for code.
func (f *Factory) HasRule(code string) (bool, error) {
	_, ok, err := f.GetRule(code)
	return ok, err
}

// Codes returns the registered codes in ascending order.
func (f *Factory) Codes() []string {
	codes := make([]string, 0, len(f.rules))
	for code := range f.rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
