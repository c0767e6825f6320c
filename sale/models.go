// Package sale defines the sale engine model: the configuration and
// pause state of a single token sale.
package sale

import (
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/types"
)

// Status is the sale state machine: Active accepts purchases, Paused
// rejects them.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Sale configures one token sale. TokenID references the backing token
// ledger; GateID optionally references a compliance gate (Nil disables
// compliance checks). TokenSource is the account whose balance and
// allowance back every purchase; the sale's own ID is the allowance
// spender key. Owner holds administrative authority over Recipient,
// Rate and pause state.
type Sale struct {
	types.Entity
	ID          id.SaleID         `json:"id"`
	TokenID     id.TokenID        `json:"token_id"`
	GateID      id.GateID         `json:"gate_id,omitempty"`
	Owner       id.AccountID      `json:"owner"`
	TokenSource id.AccountID      `json:"token_source"`
	Recipient   id.AccountID      `json:"recipient"`
	Rate        types.Amount      `json:"rate"`
	Status      Status            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IsPaused reports whether the sale rejects purchases.
func (s *Sale) IsPaused() bool { return s.Status == StatusPaused }

// HasGate reports whether a compliance gate is wired in.
func (s *Sale) HasGate() bool { return !s.GateID.IsNil() }

// TokenAmount converts a payment into token units:
// floor(payment * rate / scale). Integer arithmetic only; the division
// truncates toward zero. Reports false when payment * rate does not fit
// in 256 bits.
func (s *Sale) TokenAmount(payment, scale types.Amount) (types.Amount, bool) {
	product, ok := payment.CheckedMul(s.Rate)
	if !ok {
		return types.ZeroAmount(), false
	}
	return product.Div(scale), true
}

// Receipt records a completed purchase.
type Receipt struct {
	SaleID      id.SaleID    `json:"sale_id"`
	Buyer       id.AccountID `json:"buyer"`
	Payment     types.Amount `json:"payment"`
	TokenAmount types.Amount `json:"token_amount"`
	Recipient   id.AccountID `json:"recipient"`
}
