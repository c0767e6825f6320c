// Package kyc defines the compliance gate model: a validator-owned
// registry of revocable per-account approvals.
package kyc

import (
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/types"
)

// Gate is a compliance registry. Only Validator may grant or revoke
// approvals. Accounts are unapproved until explicitly approved.
type Gate struct {
	types.Entity
	ID        id.GateID         `json:"id"`
	Validator id.AccountID      `json:"validator"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Approval is a single account's compliance status within a gate.
type Approval struct {
	GateID   id.GateID    `json:"gate_id"`
	Account  id.AccountID `json:"account"`
	Approved bool         `json:"approved"`
}
