package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onTokenCreated     []OnTokenCreated
	onMinted           []OnMinted
	onApprovalSet      []OnApprovalSet
	onTokensPurchased  []OnTokensPurchased
	onPurchaseRejected []OnPurchaseRejected
	onSaleStopped      []OnSaleStopped
	onSaleStarted      []OnSaleStarted
	onRecipientChanged []OnRecipientChanged
	onRateChanged      []OnRateChanged
	onKYCApproved      []OnKYCApproved
	onKYCRevoked       []OnKYCRevoked
	onJournalFlushed   []OnJournalFlushed
	paymentForwarders  []PaymentForwarder
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTokenCreated); ok {
		r.onTokenCreated = append(r.onTokenCreated, v)
	}
	if v, ok := p.(OnMinted); ok {
		r.onMinted = append(r.onMinted, v)
	}
	if v, ok := p.(OnApprovalSet); ok {
		r.onApprovalSet = append(r.onApprovalSet, v)
	}
	if v, ok := p.(OnTokensPurchased); ok {
		r.onTokensPurchased = append(r.onTokensPurchased, v)
	}
	if v, ok := p.(OnPurchaseRejected); ok {
		r.onPurchaseRejected = append(r.onPurchaseRejected, v)
	}
	if v, ok := p.(OnSaleStopped); ok {
		r.onSaleStopped = append(r.onSaleStopped, v)
	}
	if v, ok := p.(OnSaleStarted); ok {
		r.onSaleStarted = append(r.onSaleStarted, v)
	}
	if v, ok := p.(OnRecipientChanged); ok {
		r.onRecipientChanged = append(r.onRecipientChanged, v)
	}
	if v, ok := p.(OnRateChanged); ok {
		r.onRateChanged = append(r.onRateChanged, v)
	}
	if v, ok := p.(OnKYCApproved); ok {
		r.onKYCApproved = append(r.onKYCApproved, v)
	}
	if v, ok := p.(OnKYCRevoked); ok {
		r.onKYCRevoked = append(r.onKYCRevoked, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}
	if v, ok := p.(PaymentForwarder); ok {
		r.paymentForwarders = append(r.paymentForwarders, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTokenCreated)(nil)).Elem(), "OnTokenCreated")
	checkInterface(reflect.TypeOf((*OnMinted)(nil)).Elem(), "OnMinted")
	checkInterface(reflect.TypeOf((*OnApprovalSet)(nil)).Elem(), "OnApprovalSet")
	checkInterface(reflect.TypeOf((*OnTokensPurchased)(nil)).Elem(), "OnTokensPurchased")
	checkInterface(reflect.TypeOf((*OnPurchaseRejected)(nil)).Elem(), "OnPurchaseRejected")
	checkInterface(reflect.TypeOf((*OnSaleStopped)(nil)).Elem(), "OnSaleStopped")
	checkInterface(reflect.TypeOf((*OnSaleStarted)(nil)).Elem(), "OnSaleStarted")
	checkInterface(reflect.TypeOf((*OnRecipientChanged)(nil)).Elem(), "OnRecipientChanged")
	checkInterface(reflect.TypeOf((*OnRateChanged)(nil)).Elem(), "OnRateChanged")
	checkInterface(reflect.TypeOf((*OnKYCApproved)(nil)).Elem(), "OnKYCApproved")
	checkInterface(reflect.TypeOf((*OnKYCRevoked)(nil)).Elem(), "OnKYCRevoked")
	checkInterface(reflect.TypeOf((*OnJournalFlushed)(nil)).Elem(), "OnJournalFlushed")
	checkInterface(reflect.TypeOf((*PaymentForwarder)(nil)).Elem(), "PaymentForwarder")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenCreated emits a token created event.
func (r *Registry) EmitTokenCreated(ctx context.Context, token interface{}) {
	r.mu.RLock()
	plugins := r.onTokenCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokenCreated(ctx, token)
		}); err != nil {
			r.logger.Warn("plugin OnTokenCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMinted emits a mint event.
func (r *Registry) EmitMinted(ctx context.Context, token interface{}, account, amount string) {
	r.mu.RLock()
	plugins := r.onMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMinted(ctx, token, account, amount)
		}); err != nil {
			r.logger.Warn("plugin OnMinted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitApprovalSet emits an allowance approval event.
func (r *Registry) EmitApprovalSet(ctx context.Context, token interface{}, owner, spender, amount string) {
	r.mu.RLock()
	plugins := r.onApprovalSet
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnApprovalSet(ctx, token, owner, spender, amount)
		}); err != nil {
			r.logger.Warn("plugin OnApprovalSet failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokensPurchased emits a purchase completed event.
func (r *Registry) EmitTokensPurchased(ctx context.Context, receipt interface{}) {
	r.mu.RLock()
	plugins := r.onTokensPurchased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokensPurchased(ctx, receipt)
		}); err != nil {
			r.logger.Warn("plugin OnTokensPurchased failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchaseRejected emits a purchase rejected event.
func (r *Registry) EmitPurchaseRejected(ctx context.Context, saleID, buyer string, cause error) {
	r.mu.RLock()
	plugins := r.onPurchaseRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchaseRejected(ctx, saleID, buyer, cause)
		}); err != nil {
			r.logger.Warn("plugin OnPurchaseRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSaleStopped emits a sale paused event.
func (r *Registry) EmitSaleStopped(ctx context.Context, sale interface{}) {
	r.mu.RLock()
	plugins := r.onSaleStopped
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSaleStopped(ctx, sale)
		}); err != nil {
			r.logger.Warn("plugin OnSaleStopped failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSaleStarted emits a sale resumed event.
func (r *Registry) EmitSaleStarted(ctx context.Context, sale interface{}) {
	r.mu.RLock()
	plugins := r.onSaleStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSaleStarted(ctx, sale)
		}); err != nil {
			r.logger.Warn("plugin OnSaleStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRecipientChanged emits a recipient changed event.
func (r *Registry) EmitRecipientChanged(ctx context.Context, sale interface{}, oldRecipient, newRecipient string) {
	r.mu.RLock()
	plugins := r.onRecipientChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRecipientChanged(ctx, sale, oldRecipient, newRecipient)
		}); err != nil {
			r.logger.Warn("plugin OnRecipientChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRateChanged emits a rate changed event.
func (r *Registry) EmitRateChanged(ctx context.Context, sale interface{}, oldRate, newRate string) {
	r.mu.RLock()
	plugins := r.onRateChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRateChanged(ctx, sale, oldRate, newRate)
		}); err != nil {
			r.logger.Warn("plugin OnRateChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitKYCApproved emits a KYC approved event.
func (r *Registry) EmitKYCApproved(ctx context.Context, gateID, account string) {
	r.mu.RLock()
	plugins := r.onKYCApproved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnKYCApproved(ctx, gateID, account)
		}); err != nil {
			r.logger.Warn("plugin OnKYCApproved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitKYCRevoked emits a KYC revoked event.
func (r *Registry) EmitKYCRevoked(ctx context.Context, gateID, account string) {
	r.mu.RLock()
	plugins := r.onKYCRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnKYCRevoked(ctx, gateID, account)
		}); err != nil {
			r.logger.Warn("plugin OnKYCRevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitJournalFlushed emits a journal flushed event.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnJournalFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnJournalFlushed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// GetPaymentForwarders returns all registered payment forwarder plugins.
func (r *Registry) GetPaymentForwarders() []PaymentForwarder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PaymentForwarder, len(r.paymentForwarders))
	copy(result, r.paymentForwarders)
	return result
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the sale pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
