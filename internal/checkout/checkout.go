package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-checkout/internal/obs"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

// ErrRuleMissing indicates a scanned code lost its pricing rule before the total was calculated.
var ErrRuleMissing = errors.New("pricing rule missing")

// RuleSource resolves pricing rules by item code. *pricing.Factory implements it.
type RuleSource interface {
	HasRule(code string) (bool, error)
	GetRule(code string) (pricing.Rule, bool, error)
}

// Config wires a Checkout to its rules and optional observability.
type Config struct {
	Rules   RuleSource
	Logger  *zerolog.Logger
	Metrics *obs.CheckoutMetrics
	NewID   func() uuid.UUID
}

// Checkout accumulates scanned item codes for one session and prices them.
// It is not safe for concurrent use.
type Checkout struct {
	rules   RuleSource
	cart    map[string]int
	session uuid.UUID
	logger  zerolog.Logger
	metrics *obs.CheckoutMetrics
	newID   func() uuid.UUID
}

// New builds a Checkout with an empty cart.
func New(cfg Config) (*Checkout, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("checkout pricing rules: %w", pricing.ErrMissingValue)
	}
	c := &Checkout{
		rules:   cfg.Rules,
		cart:    make(map[string]int),
		logger:  zerolog.Nop(),
		metrics: cfg.Metrics,
		newID:   cfg.NewID,
	}
	if cfg.Logger != nil {
		c.logger = *cfg.Logger
	}
	if c.newID == nil {
		c.newID = uuid.New
	}
	c.session = c.newID()
	return c, nil
}

// Scan adds one unit of code to the cart. The code must have a registered rule.
// A failed scan leaves the cart unchanged.
func (c *Checkout) Scan(code string) error {
	if strings.TrimSpace(code) == "" {
		return c.reject(code, obs.ScanInvalid, fmt.Errorf("sku cannot be empty: %w", pricing.ErrInvalidValue))
	}
	ok, err := c.rules.HasRule(code)
	if err != nil {
		return c.reject(code, obs.ScanInvalid, err)
	}
	if !ok {
		return c.reject(code, obs.ScanUnknown, fmt.Errorf("unknown sku %q: %w", code, pricing.ErrInvalidValue))
	}

	c.cart[code]++
	c.metrics.ScanRecorded(obs.ScanAccepted)
	c.logger.Debug().
		Str("session_id", c.session.String()).
		Str("code", code).
		Int("qty", c.cart[code]).
		Msg("item scanned")
	return nil
}

func (c *Checkout) reject(code, result string, err error) error {
	c.metrics.ScanRecorded(result)
	c.logger.Warn().
		Err(err).
		Str("session_id", c.session.String()).
		Str("code", code).
		Msg("scan rejected")
	return err
}

// Lines prices every cart entry, sorted by code.
func (c *Checkout) Lines() ([]pricing.Line, error) {
	codes := make([]string, 0, len(c.cart))
	for code := range c.cart {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	lines := make([]pricing.Line, 0, len(codes))
	for _, code := range codes {
		qty := c.cart[code]
		rule, ok, err := c.rules.GetRule(code)
		if err != nil {
			return nil, fmt.Errorf("lookup rule for %q: %w", code, err)
		}
		if !ok || rule == nil {
			return nil, fmt.Errorf("sku %q: %w", code, ErrRuleMissing)
		}
		amount, err := rule.CalculatePrice(qty)
		if err != nil {
			return nil, fmt.Errorf("price %q x%d: %w", code, qty, err)
		}
		lines = append(lines, pricing.Line{Code: code, Qty: qty, Amount: amount})
	}
	return lines, nil
}

// CalculateTotal sums the priced lines and rounds the sum to two places.
// An empty cart totals 0.00.
func (c *Checkout) CalculateTotal() (decimal.Decimal, error) {
	lines, err := c.Lines()
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := pricing.Sum(lines)
	c.metrics.TotalCalculated()
	c.logger.Debug().
		Str("session_id", c.session.String()).
		Int("lines", len(lines)).
		Str("total", total.StringFixed(pricing.Scale)).
		Msg("total calculated")
	return total, nil
}

// Clear empties the cart and starts a new session. Pricing rules are kept.
func (c *Checkout) Clear() {
	c.cart = make(map[string]int)
	c.session = c.newID()
}

// Quantity returns the scanned quantity of code, or 0 if it was never scanned.
func (c *Checkout) Quantity(code string) int {
	return c.cart[code]
}

// Empty reports whether nothing has been scanned in the current session.
func (c *Checkout) Empty() bool {
	return len(c.cart) == 0
}

// SessionID identifies the current session.
func (c *Checkout) SessionID() uuid.UUID {
	return c.session
}
