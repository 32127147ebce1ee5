package obs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Scan outcomes used as the "result" label of the scans counter.
const (
	ScanAccepted = "accepted"
	ScanInvalid  = "invalid"
	ScanUnknown  = "unknown"
)

// CheckoutMetrics groups Prometheus collectors for checkout activity.
// A nil *CheckoutMetrics is valid and records nothing.
type CheckoutMetrics struct {
	Scans         *prometheus.CounterVec
	Totals        prometheus.Counter
	Sessions      prometheus.Counter
	SessionAmount prometheus.Histogram
}

// NewCheckoutMetrics registers and returns checkout collectors.
func NewCheckoutMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{0.5, 1, 2, 5, 10, 20, 50, 100}
	} else {
		sort.Float64s(buckets)
	}
	m := &CheckoutMetrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Number of scanned item codes by outcome.",
		}, []string{"result"}),
		Totals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "totals_calculated_total",
			Help:      "Number of cart total calculations.",
		}),
		Sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Number of finished checkout sessions.",
		}),
		SessionAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_total_amount",
			Help:      "Distribution of final checkout totals.",
			Buckets:   buckets,
		}),
	}
	mustRegisterCollector(reg, m.Scans, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.Scans = v
		}
	})
	mustRegisterCollector(reg, m.Totals, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.Totals = v
		}
	})
	mustRegisterCollector(reg, m.Sessions, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.Sessions = v
		}
	})
	mustRegisterCollector(reg, m.SessionAmount, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.SessionAmount = v
		}
	})
	return m
}

// ScanRecorded counts a scan with the given outcome.
func (m *CheckoutMetrics) ScanRecorded(result string) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(result).Inc()
}

// TotalCalculated counts a total calculation.
func (m *CheckoutMetrics) TotalCalculated() {
	if m == nil {
		return
	}
	m.Totals.Inc()
}

// SessionCompleted counts a finished session and observes its final total.
func (m *CheckoutMetrics) SessionCompleted(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.Sessions.Inc()
	m.SessionAmount.Observe(total.InexactFloat64())
}

// ParseBucketsCSV converts a comma-separated list of bucket boundaries into floats.
func ParseBucketsCSV(csv string) []float64 {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			continue
		}
		if v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register checkout metric: %w", err))
	}
}
