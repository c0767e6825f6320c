package tokensale

import (
	"context"

	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/types"
)

// ──────────────────────────────────────────────────
// Compliance Gate
// ──────────────────────────────────────────────────

// CreateGate registers a new compliance gate. The validator account is
// the only account allowed to change approvals afterwards.
func (e *Engine) CreateGate(ctx context.Context, g *kyc.Gate) error {
	if g.Validator.IsNil() {
		return ValidationError{Field: "validator", Message: "must not be empty"}
	}

	if g.ID.IsNil() {
		g.ID = id.NewGateID()
	}
	g.Entity = types.NewEntity()

	e.mu.Lock()
	err := e.store.CreateGate(ctx, g)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.logger.Info("compliance gate created",
		"gate_id", g.ID,
		"validator", g.Validator,
	)

	return nil
}

// GetGate retrieves a compliance gate by ID.
func (e *Engine) GetGate(ctx context.Context, gateID id.GateID) (*kyc.Gate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.GetGate(ctx, gateID)
}

// SetApproved marks the account as having completed KYC. Only the
// gate's validator may call this.
func (e *Engine) SetApproved(ctx context.Context, gateID id.GateID, caller, account id.AccountID) error {
	if err := e.setApproval(ctx, gateID, caller, account, true); err != nil {
		return err
	}

	e.plugins.EmitKYCApproved(ctx, gateID.String(), account.String())
	e.journal(&event.Record{
		Type:    event.TypeKYCApproved,
		GateID:  gateID,
		Account: account,
	})

	return nil
}

// SetRevoked withdraws the account's KYC approval. Only the gate's
// validator may call this.
func (e *Engine) SetRevoked(ctx context.Context, gateID id.GateID, caller, account id.AccountID) error {
	if err := e.setApproval(ctx, gateID, caller, account, false); err != nil {
		return err
	}

	e.plugins.EmitKYCRevoked(ctx, gateID.String(), account.String())
	e.journal(&event.Record{
		Type:    event.TypeKYCRevoked,
		GateID:  gateID,
		Account: account,
	})

	return nil
}

func (e *Engine) setApproval(ctx context.Context, gateID id.GateID, caller, account id.AccountID, approved bool) error {
	if account.IsNil() {
		return ValidationError{Field: "account", Message: "must not be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGate(ctx, gateID)
	if err != nil {
		return err
	}
	if caller != g.Validator {
		return ErrNotValidator
	}

	return e.store.SetApproval(ctx, gateID, account, approved)
}

// IsApproved reports whether the account has completed KYC. Accounts
// never seen by the gate report false.
func (e *Engine) IsApproved(ctx context.Context, gateID id.GateID, account id.AccountID) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.GetGate(ctx, gateID); err != nil {
		return false, err
	}
	return e.store.GetApproval(ctx, gateID, account)
}
