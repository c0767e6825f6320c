// Package plugin provides an extensible plugin system for the token sale
// engine. Plugins can hook into various lifecycle events to extend
// functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Token ledger hooks
// ──────────────────────────────────────────────────

// OnTokenCreated is called when a new token is created.
type OnTokenCreated interface {
	Plugin
	OnTokenCreated(ctx context.Context, token interface{}) error
}

// OnMinted is called when new tokens are minted into an account.
type OnMinted interface {
	Plugin
	OnMinted(ctx context.Context, token interface{}, account string, amount string) error
}

// OnApprovalSet is called when a sell allowance is granted or changed.
type OnApprovalSet interface {
	Plugin
	OnApprovalSet(ctx context.Context, token interface{}, owner, spender string, amount string) error
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnTokensPurchased is called when a purchase completes.
type OnTokensPurchased interface {
	Plugin
	OnTokensPurchased(ctx context.Context, receipt interface{}) error
}

// OnPurchaseRejected is called when a purchase fails one of its
// preconditions. The error carries the rejection reason.
type OnPurchaseRejected interface {
	Plugin
	OnPurchaseRejected(ctx context.Context, saleID, buyer string, err error) error
}

// OnSaleStopped is called when a sale is paused.
type OnSaleStopped interface {
	Plugin
	OnSaleStopped(ctx context.Context, sale interface{}) error
}

// OnSaleStarted is called when a paused sale resumes.
type OnSaleStarted interface {
	Plugin
	OnSaleStarted(ctx context.Context, sale interface{}) error
}

// OnRecipientChanged is called when a sale's payment recipient changes.
type OnRecipientChanged interface {
	Plugin
	OnRecipientChanged(ctx context.Context, sale interface{}, oldRecipient, newRecipient string) error
}

// OnRateChanged is called when a sale's exchange rate changes.
type OnRateChanged interface {
	Plugin
	OnRateChanged(ctx context.Context, sale interface{}, oldRate, newRate string) error
}

// ──────────────────────────────────────────────────
// Compliance hooks
// ──────────────────────────────────────────────────

// OnKYCApproved is called when an account passes KYC.
type OnKYCApproved interface {
	Plugin
	OnKYCApproved(ctx context.Context, gateID, account string) error
}

// OnKYCRevoked is called when an account's KYC approval is withdrawn.
type OnKYCRevoked interface {
	Plugin
	OnKYCRevoked(ctx context.Context, gateID, account string) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed is called when buffered journal records are flushed
// to the store.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Payment forwarding
// ──────────────────────────────────────────────────

// PaymentForwarder moves a received payment to the sale's recipient.
// Forwarding runs after the ledger transfer commits; a forwarding error
// is logged and does not roll back the purchase.
type PaymentForwarder interface {
	Plugin
	ForwardPayment(ctx context.Context, recipient string, amount string) error
}
