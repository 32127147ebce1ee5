package checkout_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-checkout/internal/checkout"
	"github.com/noah-isme/pos-checkout/internal/obs"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

type mockRule struct {
	price decimal.Decimal
}

func (m mockRule) CalculatePrice(quantity int) (decimal.Decimal, error) {
	return m.price.Mul(decimal.NewFromInt(int64(quantity))), nil
}

type failingRule struct{}

func (failingRule) CalculatePrice(int) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("boom")
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newMockCheckout(t *testing.T) (*checkout.Checkout, *pricing.Factory) {
	t.Helper()
	factory := pricing.NewFactory()
	require.NoError(t, factory.AddRule("A", mockRule{price: money("50")}))
	require.NoError(t, factory.AddRule("B", mockRule{price: money("30")}))
	co, err := checkout.New(checkout.Config{Rules: factory})
	require.NoError(t, err)
	return co, factory
}

func newKataCheckout(t *testing.T, special *pricing.SpecialRule) *checkout.Checkout {
	t.Helper()
	factory := pricing.NewFactory()
	regular, err := pricing.NewRegularRule(money("0.50"))
	require.NoError(t, err)
	require.NoError(t, factory.AddRule("A", regular))
	require.NoError(t, factory.AddRule("B", special))
	co, err := checkout.New(checkout.Config{Rules: factory})
	require.NoError(t, err)
	return co
}

func scanAll(t *testing.T, co *checkout.Checkout, codes ...string) {
	t.Helper()
	for _, code := range codes {
		require.NoError(t, co.Scan(code))
	}
}

func TestNewRequiresRules(t *testing.T) {
	co, err := checkout.New(checkout.Config{})
	require.ErrorIs(t, err, pricing.ErrMissingValue)
	assert.Nil(t, co)
}

func TestScanValidSKU(t *testing.T) {
	co, _ := newMockCheckout(t)
	require.NoError(t, co.Scan("A"))
	assert.Equal(t, 1, co.Quantity("A"))
	assert.Equal(t, 0, co.Quantity("B"))
	assert.Equal(t, 0, co.Quantity("nope"))
}

func TestTotalSingleItem(t *testing.T) {
	co, _ := newMockCheckout(t)
	scanAll(t, co, "A")
	total, err := co.CalculateTotal()
	require.NoError(t, err)
	assert.Equal(t, "50.00", total.StringFixed(2))
}

func TestScanRejectsBadCodes(t *testing.T) {
	co, _ := newMockCheckout(t)
	scanAll(t, co, "A")

	require.ErrorIs(t, co.Scan(""), pricing.ErrInvalidValue)
	assert.NotErrorIs(t, co.Scan(""), pricing.ErrMissingValue)
	require.ErrorIs(t, co.Scan("   "), pricing.ErrInvalidValue)
	err := co.Scan("Z")
	require.ErrorIs(t, err, pricing.ErrInvalidValue)
	assert.Contains(t, err.Error(), `"Z"`)
	require.ErrorIs(t, co.Scan("a"), pricing.ErrInvalidValue)

	assert.Equal(t, 1, co.Quantity("A"))
	assert.Equal(t, 0, co.Quantity("Z"))
	lines, err := co.Lines()
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestScenarioTwoForPointFourFive(t *testing.T) {
	special, err := pricing.NewSpecialRule(money("0.30"), 2, money("0.45"))
	require.NoError(t, err)
	co := newKataCheckout(t, special)

	scanAll(t, co, "A", "B", "B", "A", "B")
	assert.Equal(t, 2, co.Quantity("A"))
	assert.Equal(t, 3, co.Quantity("B"))

	total, err := co.CalculateTotal()
	require.NoError(t, err)
	assert.Equal(t, "1.75", total.StringFixed(2))
}

func TestScenarioThreeForOneThirty(t *testing.T) {
	special, err := pricing.NewSpecialRule(money("0.50"), 3, money("1.30"))
	require.NoError(t, err)
	co := newKataCheckout(t, special)

	scanAll(t, co, "B", "B", "B")
	total, err := co.CalculateTotal()
	require.NoError(t, err)
	assert.Equal(t, "1.30", total.StringFixed(2))

	co.Clear()
	scanAll(t, co, "A", "B", "B", "A", "B")
	total, err = co.CalculateTotal()
	require.NoError(t, err)
	assert.Equal(t, "2.30", total.StringFixed(2))
}

func TestTotalIndependentOfScanOrder(t *testing.T) {
	special, err := pricing.NewSpecialRule(money("0.30"), 2, money("0.45"))
	require.NoError(t, err)
	forward := newKataCheckout(t, special)
	backward := newKataCheckout(t, special)

	scanAll(t, forward, "A", "A", "B", "B", "B")
	scanAll(t, backward, "B", "B", "B", "A", "A")

	a, err := forward.CalculateTotal()
	require.NoError(t, err)
	b, err := backward.CalculateTotal()
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestEmptyAndClearedCartTotalZero(t *testing.T) {
	co, _ := newMockCheckout(t)
	assert.True(t, co.Empty())

	total, err := co.CalculateTotal()
	require.NoError(t, err)
	assert.Equal(t, "0.00", total.StringFixed(2))

	scanAll(t, co, "A", "B")
	assert.False(t, co.Empty())
	co.Clear()
	assert.True(t, co.Empty())
	assert.Equal(t, 0, co.Quantity("A"))

	total, err = co.CalculateTotal()
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	// rules survive a clear
	require.NoError(t, co.Scan("B"))
}

func TestLinesSortedByCode(t *testing.T) {
	co, _ := newMockCheckout(t)
	scanAll(t, co, "B", "A", "B")

	lines, err := co.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].Code)
	assert.Equal(t, 1, lines[0].Qty)
	assert.Equal(t, "50.00", lines[0].Amount.StringFixed(2))
	assert.Equal(t, "B", lines[1].Code)
	assert.Equal(t, 2, lines[1].Qty)
	assert.Equal(t, "60.00", lines[1].Amount.StringFixed(2))
}

func TestCartKeepsExactCode(t *testing.T) {
	co, _ := newMockCheckout(t)
	scanAll(t, co, " A", "A")
	assert.Equal(t, 1, co.Quantity("A"))
	assert.Equal(t, 1, co.Quantity(" A"))

	total, err := co.CalculateTotal()
	require.NoError(t, err)
	assert.Equal(t, "100.00", total.StringFixed(2))
}

func TestTotalFailsWhenRuleDisappears(t *testing.T) {
	co, factory := newMockCheckout(t)
	scanAll(t, co, "A")

	require.NoError(t, factory.AddRule("A", failingRule{}))
	_, err := co.CalculateTotal()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

type forgetfulSource struct{}

func (forgetfulSource) HasRule(string) (bool, error) { return true, nil }
func (forgetfulSource) GetRule(string) (pricing.Rule, bool, error) {
	return nil, false, nil
}

func TestTotalReportsMissingRule(t *testing.T) {
	co, err := checkout.New(checkout.Config{Rules: forgetfulSource{}})
	require.NoError(t, err)
	require.NoError(t, co.Scan("A"))

	_, err = co.CalculateTotal()
	require.ErrorIs(t, err, checkout.ErrRuleMissing)
}

func TestSessionIDRotatesOnClear(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		uuid.MustParse("22222222-2222-2222-2222-222222222222"),
	}
	next := 0
	factory := pricing.NewFactory()
	co, err := checkout.New(checkout.Config{Rules: factory, NewID: func() uuid.UUID {
		id := ids[next]
		next++
		return id
	}})
	require.NoError(t, err)

	assert.Equal(t, ids[0], co.SessionID())
	co.Clear()
	assert.Equal(t, ids[1], co.SessionID())
}

func TestScanObservability(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	registry := prometheus.NewRegistry()
	metrics := obs.NewCheckoutMetrics("pos", nil, registry)

	factory := pricing.NewFactory()
	require.NoError(t, factory.AddRule("A", mockRule{price: money("1")}))
	co, err := checkout.New(checkout.Config{Rules: factory, Logger: &logger, Metrics: metrics})
	require.NoError(t, err)

	require.NoError(t, co.Scan("A"))
	require.Error(t, co.Scan("Q"))
	require.Error(t, co.Scan(""))
	_, err = co.CalculateTotal()
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Scans.WithLabelValues(obs.ScanAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Scans.WithLabelValues(obs.ScanUnknown)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Scans.WithLabelValues(obs.ScanInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Totals))

	out := buf.String()
	assert.Contains(t, out, "item scanned")
	assert.Contains(t, out, "scan rejected")
	assert.Contains(t, out, co.SessionID().String())
}
