// Package observability provides a metrics extension for Tokensale that
// records lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tokensale/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnTokenCreated     = (*MetricsExtension)(nil)
	_ plugin.OnMinted           = (*MetricsExtension)(nil)
	_ plugin.OnApprovalSet      = (*MetricsExtension)(nil)
	_ plugin.OnTokensPurchased  = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseRejected = (*MetricsExtension)(nil)
	_ plugin.OnSaleStopped      = (*MetricsExtension)(nil)
	_ plugin.OnSaleStarted      = (*MetricsExtension)(nil)
	_ plugin.OnRecipientChanged = (*MetricsExtension)(nil)
	_ plugin.OnRateChanged      = (*MetricsExtension)(nil)
	_ plugin.OnKYCApproved      = (*MetricsExtension)(nil)
	_ plugin.OnKYCRevoked       = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tokensale plugin to automatically track sale metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Token metrics
	TokenCreated Counter
	MintCount    Counter
	ApprovalSet  Counter

	// Sale metrics
	PurchaseCount    Counter
	PurchaseRejected Counter
	SaleStopped      Counter
	SaleStarted      Counter
	RecipientChanged Counter
	RateChanged      Counter

	// KYC metrics
	KYCApproved Counter
	KYCRevoked  Counter

	// Journal metrics
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Token metrics
		TokenCreated: factory.Counter("tokensale.token.created"),
		MintCount:    factory.Counter("tokensale.token.minted"),
		ApprovalSet:  factory.Counter("tokensale.token.approval_set"),

		// Sale metrics
		PurchaseCount:    factory.Counter("tokensale.sale.purchases"),
		PurchaseRejected: factory.Counter("tokensale.sale.rejections"),
		SaleStopped:      factory.Counter("tokensale.sale.stopped"),
		SaleStarted:      factory.Counter("tokensale.sale.started"),
		RecipientChanged: factory.Counter("tokensale.sale.recipient_changed"),
		RateChanged:      factory.Counter("tokensale.sale.rate_changed"),

		// KYC metrics
		KYCApproved: factory.Counter("tokensale.kyc.approved"),
		KYCRevoked:  factory.Counter("tokensale.kyc.revoked"),

		// Journal metrics
		JournalBatchSize:    factory.Histogram("tokensale.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("tokensale.journal.flush.latency_ms"),

		// Error metrics
		StoreErrors:  factory.Counter("tokensale.store.errors"),
		PluginErrors: factory.Counter("tokensale.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Token lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenCreated implements plugin.OnTokenCreated.
func (m *MetricsExtension) OnTokenCreated(_ context.Context, _ interface{}) error {
	m.TokenCreated.Inc()
	return nil
}

// OnMinted implements plugin.OnMinted.
func (m *MetricsExtension) OnMinted(_ context.Context, _ interface{}, _, _ string) error {
	m.MintCount.Inc()
	return nil
}

// OnApprovalSet implements plugin.OnApprovalSet.
func (m *MetricsExtension) OnApprovalSet(_ context.Context, _ interface{}, _, _, _ string) error {
	m.ApprovalSet.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Sale lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokensPurchased implements plugin.OnTokensPurchased.
func (m *MetricsExtension) OnTokensPurchased(_ context.Context, _ interface{}) error {
	m.PurchaseCount.Inc()
	return nil
}

// OnPurchaseRejected implements plugin.OnPurchaseRejected.
func (m *MetricsExtension) OnPurchaseRejected(_ context.Context, _, _ string, _ error) error {
	m.PurchaseRejected.Inc()
	return nil
}

// OnSaleStopped implements plugin.OnSaleStopped.
func (m *MetricsExtension) OnSaleStopped(_ context.Context, _ interface{}) error {
	m.SaleStopped.Inc()
	return nil
}

// OnSaleStarted implements plugin.OnSaleStarted.
func (m *MetricsExtension) OnSaleStarted(_ context.Context, _ interface{}) error {
	m.SaleStarted.Inc()
	return nil
}

// OnRecipientChanged implements plugin.OnRecipientChanged.
func (m *MetricsExtension) OnRecipientChanged(_ context.Context, _ interface{}, _, _ string) error {
	m.RecipientChanged.Inc()
	return nil
}

// OnRateChanged implements plugin.OnRateChanged.
func (m *MetricsExtension) OnRateChanged(_ context.Context, _ interface{}, _, _ string) error {
	m.RateChanged.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// KYC lifecycle hooks
// ──────────────────────────────────────────────────

// OnKYCApproved implements plugin.OnKYCApproved.
func (m *MetricsExtension) OnKYCApproved(_ context.Context, _, _ string) error {
	m.KYCApproved.Inc()
	return nil
}

// OnKYCRevoked implements plugin.OnKYCRevoked.
func (m *MetricsExtension) OnKYCRevoked(_ context.Context, _, _ string) error {
	m.KYCRevoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Journal lifecycle hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
