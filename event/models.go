// Package event defines the durable notification journal records.
package event

import (
	"time"

	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/types"
)

// Type identifies a notification kind in the journal.
type Type string

// Journal event types.
const (
	TypeTokenCreated     Type = "token.created"
	TypeMinted           Type = "token.minted"
	TypeApprovalSet      Type = "token.approval_set"
	TypeTokensPurchased  Type = "sale.tokens_purchased"
	TypeSaleStopped      Type = "sale.stopped"
	TypeSaleStarted      Type = "sale.started"
	TypeRecipientChanged Type = "sale.recipient_changed"
	TypeRateChanged      Type = "sale.rate_changed"
	TypeKYCApproved      Type = "kyc.approved"
	TypeKYCRevoked       Type = "kyc.revoked"
)

// Record is a single journal entry. Account carries the primary
// participant of the notification (buyer, caller, recipient or the
// approved/revoked account depending on Type); Amount carries the token
// amount, rate or allowance where the type has one.
type Record struct {
	ID         id.EventID        `json:"id"`
	Type       Type              `json:"type"`
	SaleID     id.SaleID         `json:"sale_id,omitempty"`
	TokenID    id.TokenID        `json:"token_id,omitempty"`
	GateID     id.GateID         `json:"gate_id,omitempty"`
	Account    id.AccountID      `json:"account,omitempty"`
	Amount     types.Amount      `json:"amount,omitempty"`
	Payment    types.Amount      `json:"payment,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ListOpts filters journal queries.
type ListOpts struct {
	SaleID  id.SaleID
	TokenID id.TokenID
	Type    Type
	Start   time.Time
	End     time.Time
	Limit   int
	Offset  int
}
