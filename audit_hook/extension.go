// Package audithook bridges Tokensale lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tokensale/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnTokenCreated     = (*Extension)(nil)
	_ plugin.OnMinted           = (*Extension)(nil)
	_ plugin.OnApprovalSet      = (*Extension)(nil)
	_ plugin.OnTokensPurchased  = (*Extension)(nil)
	_ plugin.OnPurchaseRejected = (*Extension)(nil)
	_ plugin.OnSaleStopped      = (*Extension)(nil)
	_ plugin.OnSaleStarted      = (*Extension)(nil)
	_ plugin.OnRecipientChanged = (*Extension)(nil)
	_ plugin.OnRateChanged      = (*Extension)(nil)
	_ plugin.OnKYCApproved      = (*Extension)(nil)
	_ plugin.OnKYCRevoked       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly -- callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tokensale lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Token lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokenCreated implements plugin.OnTokenCreated.
func (e *Extension) OnTokenCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTokenCreated, SeverityInfo, OutcomeSuccess,
		ResourceToken, "", CategoryLedger, nil,
		"event", "token_created",
	)
}

// OnMinted implements plugin.OnMinted.
func (e *Extension) OnMinted(ctx context.Context, _ interface{}, account, amount string) error {
	return e.record(ctx, ActionTokenMinted, SeverityInfo, OutcomeSuccess,
		ResourceToken, "", CategoryLedger, nil,
		"account", account,
		"amount", amount,
	)
}

// OnApprovalSet implements plugin.OnApprovalSet.
func (e *Extension) OnApprovalSet(ctx context.Context, _ interface{}, owner, spender, amount string) error {
	return e.record(ctx, ActionApprovalSet, SeverityInfo, OutcomeSuccess,
		ResourceToken, "", CategoryLedger, nil,
		"owner", owner,
		"spender", spender,
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Sale lifecycle hooks
// ──────────────────────────────────────────────────

// OnTokensPurchased implements plugin.OnTokensPurchased.
func (e *Extension) OnTokensPurchased(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTokensPurchased, SeverityInfo, OutcomeSuccess,
		ResourceSale, "", CategorySale, nil,
		"event", "tokens_purchased",
	)
}

// OnPurchaseRejected implements plugin.OnPurchaseRejected.
func (e *Extension) OnPurchaseRejected(ctx context.Context, saleID, buyer string, err error) error {
	return e.record(ctx, ActionPurchaseRejected, SeverityWarning, OutcomeFailure,
		ResourceSale, saleID, CategorySale, err,
		"sale_id", saleID,
		"buyer", buyer,
	)
}

// OnSaleStopped implements plugin.OnSaleStopped.
func (e *Extension) OnSaleStopped(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSaleStopped, SeverityWarning, OutcomeSuccess,
		ResourceSale, "", CategorySale, nil,
		"event", "sale_stopped",
	)
}

// OnSaleStarted implements plugin.OnSaleStarted.
func (e *Extension) OnSaleStarted(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSaleStarted, SeverityInfo, OutcomeSuccess,
		ResourceSale, "", CategorySale, nil,
		"event", "sale_started",
	)
}

// OnRecipientChanged implements plugin.OnRecipientChanged.
func (e *Extension) OnRecipientChanged(ctx context.Context, _ interface{}, oldRecipient, newRecipient string) error {
	return e.record(ctx, ActionRecipientChanged, SeverityWarning, OutcomeSuccess,
		ResourceSale, "", CategorySale, nil,
		"old_recipient", oldRecipient,
		"new_recipient", newRecipient,
	)
}

// OnRateChanged implements plugin.OnRateChanged.
func (e *Extension) OnRateChanged(ctx context.Context, _ interface{}, oldRate, newRate string) error {
	return e.record(ctx, ActionRateChanged, SeverityWarning, OutcomeSuccess,
		ResourceSale, "", CategorySale, nil,
		"old_rate", oldRate,
		"new_rate", newRate,
	)
}

// ──────────────────────────────────────────────────
// KYC lifecycle hooks
// ──────────────────────────────────────────────────

// OnKYCApproved implements plugin.OnKYCApproved.
func (e *Extension) OnKYCApproved(ctx context.Context, gateID, account string) error {
	return e.record(ctx, ActionKYCApproved, SeverityInfo, OutcomeSuccess,
		ResourceGate, gateID, CategoryCompliance, nil,
		"gate_id", gateID,
		"account", account,
	)
}

// OnKYCRevoked implements plugin.OnKYCRevoked.
func (e *Extension) OnKYCRevoked(ctx context.Context, gateID, account string) error {
	return e.record(ctx, ActionKYCRevoked, SeverityWarning, OutcomeSuccess,
		ResourceGate, gateID, CategoryCompliance, nil,
		"gate_id", gateID,
		"account", account,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
