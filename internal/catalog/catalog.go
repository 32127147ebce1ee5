// Package catalog turns pricing rule definitions into a populated pricing.Factory.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// Rule kinds accepted in a Definition.
const (
	KindRegular = "regular"
	KindSpecial = "special"
)

// Definition describes one pricing rule. Prices are decimal strings so that
// they are never routed through binary floating point.
type Definition struct {
	Code        string `koanf:"code" validate:"required"`
	Kind        string `koanf:"kind" validate:"required,oneof=regular special"`
	UnitPrice   string `koanf:"unit_price" validate:"required,numeric"`
	BundleSize  int    `koanf:"bundle_size" validate:"required_if=Kind special"`
	BundlePrice string `koanf:"bundle_price" validate:"required_if=Kind special"`
}

type document struct {
	Rules []Definition `koanf:"rules"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in price list.
func Default() []Definition {
	return []Definition{
		{Code: "A", Kind: KindSpecial, UnitPrice: "0.50", BundleSize: 3, BundlePrice: "1.30"},
		{Code: "B", Kind: KindSpecial, UnitPrice: "0.30", BundleSize: 2, BundlePrice: "0.45"},
		{Code: "C", Kind: KindRegular, UnitPrice: "0.20"},
		{Code: "D", Kind: KindRegular, UnitPrice: "0.15"},
	}
}

// Load reads definitions from a JSON document of the form {"rules": [...]}.
func Load(path string) ([]Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog: rules file path is required")
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("catalog: %s defines no rules", path)
	}
	return doc.Rules, nil
}

// Rule validates the definition and constructs its pricing rule.
func (d Definition) Rule() (pricing.Rule, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%v: %w", err, pricing.ErrInvalidValue)
	}
	unit, err := decimal.NewFromString(d.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("unit price %q: %w", d.UnitPrice, pricing.ErrInvalidValue)
	}
	switch d.Kind {
	case KindSpecial:
		bundle, err := decimal.NewFromString(d.BundlePrice)
		if err != nil {
			return nil, fmt.Errorf("bundle price %q: %w", d.BundlePrice, pricing.ErrInvalidValue)
		}
		rule, err := pricing.NewSpecialRule(unit, d.BundleSize, bundle)
		if err != nil {
			return nil, err
		}
		return rule, nil
	default:
		rule, err := pricing.NewRegularRule(unit)
		if err != nil {
			return nil, err
		}
		return rule, nil
	}
}

// Build registers every definition in a new Factory. Later definitions for the
// same code replace earlier ones.
func Build(defs []Definition) (*pricing.Factory, error) {
	factory := pricing.NewFactory()
	for i, def := range defs {
		rule, err := def.Rule()
		if err != nil {
			return nil, fmt.Errorf("catalog: rule %d (%s): %w", i, def.Code, err)
		}
		if err := factory.AddRule(def.Code, rule); err != nil {
			return nil, fmt.Errorf("catalog: rule %d: %w", i, err)
		}
	}
	return factory, nil
}
