package tokensale

import (
	"context"

	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

// ──────────────────────────────────────────────────
// Token Ledger
// ──────────────────────────────────────────────────

// CreateToken registers a new supply-capped token ledger. The maximum
// supply is derived from SupplyUnits scaled by Decimals and never
// changes afterwards.
func (e *Engine) CreateToken(ctx context.Context, t *token.Token) error {
	if t.Name == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if t.Symbol == "" {
		return ValidationError{Field: "symbol", Message: "must not be empty"}
	}
	if t.SupplyUnits == 0 {
		return ValidationError{Field: "supply_units", Message: "must be positive"}
	}
	if t.Owner.IsNil() {
		return ValidationError{Field: "owner", Message: "must not be empty"}
	}

	maxSupply, ok := types.CheckedUnits(t.SupplyUnits, t.Decimals)
	if !ok {
		return ValidationError{Field: "supply_units", Message: "scaled supply exceeds 256-bit range"}
	}

	if t.ID.IsNil() {
		t.ID = id.NewTokenID()
	}
	t.Entity = types.NewEntity()
	t.MaxSupply = maxSupply
	t.TotalMinted = types.ZeroAmount()

	e.mu.Lock()
	err := e.store.CreateToken(ctx, t)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.plugins.EmitTokenCreated(ctx, t)
	e.journal(&event.Record{
		Type:    event.TypeTokenCreated,
		TokenID: t.ID,
		Account: t.Owner,
		Amount:  t.MaxSupply,
	})

	e.logger.Info("token created",
		"token_id", t.ID,
		"symbol", t.Symbol,
		"max_supply", t.MaxSupply,
	)

	return nil
}

// GetToken retrieves a token by ID.
func (e *Engine) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.GetToken(ctx, tokenID)
}

// Mint creates new tokens in the target account. Only the token owner
// may mint, and the minted total can never exceed the maximum supply.
func (e *Engine) Mint(ctx context.Context, tokenID id.TokenID, caller, to id.AccountID, amount types.Amount) error {
	if to.IsNil() {
		return ValidationError{Field: "to", Message: "must not be empty"}
	}

	e.mu.Lock()
	t, err := e.store.GetToken(ctx, tokenID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if caller != t.Owner {
		e.mu.Unlock()
		return ErrNotOwner
	}
	if !t.CanMint(amount) {
		e.mu.Unlock()
		return ErrExceedsMaxSupply
	}

	balance, err := e.store.GetBalance(ctx, tokenID, to)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	newTotal := t.TotalMinted.Add(amount)
	if err := e.store.ApplyMint(ctx, tokenID, to, balance.Add(amount), newTotal); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.plugins.EmitMinted(ctx, t, to.String(), amount.String())
	e.journal(&event.Record{
		Type:    event.TypeMinted,
		TokenID: tokenID,
		Account: to,
		Amount:  amount,
	})

	return nil
}

// Approve sets the spender's allowance over the owner's balance to the
// given absolute amount, replacing any previous allowance.
func (e *Engine) Approve(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID, amount types.Amount) error {
	if owner.IsNil() {
		return ValidationError{Field: "owner", Message: "must not be empty"}
	}
	if spender.IsNil() {
		return ValidationError{Field: "spender", Message: "must not be empty"}
	}

	e.mu.Lock()
	t, err := e.store.GetToken(ctx, tokenID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.store.SetAllowance(ctx, tokenID, owner, spender, amount); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.plugins.EmitApprovalSet(ctx, t, owner.String(), spender.String(), amount.String())
	e.journal(&event.Record{
		Type:    event.TypeApprovalSet,
		TokenID: tokenID,
		Account: spender,
		Amount:  amount,
	})

	return nil
}

// Allowance returns the remaining amount the spender may transfer from
// the owner's balance.
func (e *Engine) Allowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID) (types.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.GetToken(ctx, tokenID); err != nil {
		return types.ZeroAmount(), err
	}
	return e.store.GetAllowance(ctx, tokenID, owner, spender)
}

// BalanceOf returns the account's balance. Unknown accounts hold zero.
func (e *Engine) BalanceOf(ctx context.Context, tokenID id.TokenID, account id.AccountID) (types.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.store.GetToken(ctx, tokenID); err != nil {
		return types.ZeroAmount(), err
	}
	return e.store.GetBalance(ctx, tokenID, account)
}

// TotalMinted returns the cumulative amount minted so far.
func (e *Engine) TotalMinted(ctx context.Context, tokenID id.TokenID) (types.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.store.GetToken(ctx, tokenID)
	if err != nil {
		return types.ZeroAmount(), err
	}
	return t.TotalMinted, nil
}

// transferFrom moves tokens from the owner to the recipient on the
// spender's authority, consuming allowance. Balance and allowance are
// re-validated here so the transfer either applies fully or not at all.
// Callers must hold e.mu for writing.
func (e *Engine) transferFrom(ctx context.Context, tokenID id.TokenID, from, to, spender id.AccountID, amount types.Amount) error {
	balance, err := e.store.GetBalance(ctx, tokenID, from)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	allowance, err := e.store.GetAllowance(ctx, tokenID, from, spender)
	if err != nil {
		return err
	}
	if allowance.LessThan(amount) {
		return ErrExceedsAllowance
	}

	toBalance, err := e.store.GetBalance(ctx, tokenID, to)
	if err != nil {
		return err
	}

	return e.store.ApplyTransfer(ctx, tokenID, from, to, spender,
		balance.Sub(amount), toBalance.Add(amount), allowance.Sub(amount))
}
