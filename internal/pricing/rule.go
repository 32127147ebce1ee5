package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rule prices a quantity of a single item code.
type Rule interface {
	CalculatePrice(quantity int) (decimal.Decimal, error)
}

// RegularRule charges a fixed price per unit.
type RegularRule struct {
	unitPrice decimal.Decimal
}

// NewRegularRule validates the unit price and builds a RegularRule.
func NewRegularRule(unitPrice decimal.Decimal) (*RegularRule, error) {
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("unit price %s is negative: %w", unitPrice.String(), ErrInvalidValue)
	}
	return &RegularRule{unitPrice: unitPrice}, nil
}

// UnitPrice returns the configured per-unit price.
func (r *RegularRule) UnitPrice() decimal.Decimal {
	return r.unitPrice
}

// CalculatePrice returns unitPrice × quantity rounded to two places.
func (r *RegularRule) CalculatePrice(quantity int) (decimal.Decimal, error) {
	if err := checkQuantity(quantity); err != nil {
		return decimal.Decimal{}, err
	}
	return Round(r.unitPrice.Mul(decimal.NewFromInt(int64(quantity)))), nil
}

func (r *RegularRule) String() string {
	return r.unitPrice.StringFixed(Scale) + " each"
}

// SpecialRule charges bundlePrice for every complete group of bundleSize units
// and unitPrice for each leftover unit.
type SpecialRule struct {
	unitPrice   decimal.Decimal
	bundleSize  int
	bundlePrice decimal.Decimal
}

// NewSpecialRule validates its arguments and builds a SpecialRule.
func NewSpecialRule(unitPrice decimal.Decimal, bundleSize int, bundlePrice decimal.Decimal) (*SpecialRule, error) {
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("unit price %s is negative: %w", unitPrice.String(), ErrInvalidValue)
	}
	if bundleSize <= 0 {
		return nil, fmt.Errorf("bundle size %d must be positive: %w", bundleSize, ErrInvalidValue)
	}
	if bundlePrice.IsNegative() {
		return nil, fmt.Errorf("bundle price %s is negative: %w", bundlePrice.String(), ErrInvalidValue)
	}
	return &SpecialRule{unitPrice: unitPrice, bundleSize: bundleSize, bundlePrice: bundlePrice}, nil
}

func (r *SpecialRule) UnitPrice() decimal.Decimal   { return r.unitPrice }
func (r *SpecialRule) BundleSize() int              { return r.bundleSize }
func (r *SpecialRule) BundlePrice() decimal.Decimal { return r.bundlePrice }

// CalculatePrice prices full bundles at bundlePrice and the remainder at unitPrice.
func (r *SpecialRule) CalculatePrice(quantity int) (decimal.Decimal, error) {
	if err := checkQuantity(quantity); err != nil {
		return decimal.Decimal{}, err
	}
	bundles := decimal.NewFromInt(int64(quantity / r.bundleSize))
	remainder := decimal.NewFromInt(int64(quantity % r.bundleSize))
	amount := r.bundlePrice.Mul(bundles).Add(r.unitPrice.Mul(remainder))
	return Round(amount), nil
}

func (r *SpecialRule) String() string {
	return fmt.Sprintf("%s each, %d for %s",
		r.unitPrice.StringFixed(Scale), r.bundleSize, r.bundlePrice.StringFixed(Scale))
}

func checkQuantity(quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity %d is negative: %w", quantity, ErrInvalidValue)
	}
	return nil
}
