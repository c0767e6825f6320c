package audithook

// Action constants for audit events.
const (
	// Token actions
	ActionTokenCreated = "token.created"
	ActionTokenMinted  = "token.minted"
	ActionApprovalSet  = "token.approval_set"

	// Sale actions
	ActionTokensPurchased  = "sale.tokens_purchased"
	ActionPurchaseRejected = "sale.purchase_rejected"
	ActionSaleStopped      = "sale.stopped"
	ActionSaleStarted      = "sale.started"
	ActionRecipientChanged = "sale.recipient_changed"
	ActionRateChanged      = "sale.rate_changed"

	// KYC actions
	ActionKYCApproved = "kyc.approved"
	ActionKYCRevoked  = "kyc.revoked"

	// Journal actions
	ActionJournalFlushed = "journal.flushed"
)

// Resource constants for audit events.
const (
	ResourceToken   = "token"
	ResourceSale    = "sale"
	ResourceGate    = "gate"
	ResourceJournal = "journal"
)

// Category constants for audit events.
const (
	CategoryLedger     = "ledger"
	CategorySale       = "sale"
	CategoryCompliance = "compliance"
	CategoryAudit      = "audit"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
