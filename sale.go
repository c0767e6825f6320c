package tokensale

import (
	"context"
	"time"

	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/sale"
	"github.com/xraph/tokensale/types"
)

// ──────────────────────────────────────────────────
// Sale Engine
// ──────────────────────────────────────────────────

// CreateSale registers a new token sale. The sale starts Active and
// sells tokens from the TokenSource account against the allowance
// granted to the sale's own ID.
func (e *Engine) CreateSale(ctx context.Context, s *sale.Sale) error {
	if s.Owner.IsNil() {
		return ValidationError{Field: "owner", Message: "must not be empty"}
	}
	if s.TokenSource.IsNil() {
		return ValidationError{Field: "token_source", Message: "must not be empty"}
	}
	if s.Recipient.IsNil() {
		return ValidationError{Field: "recipient", Message: "must not be empty"}
	}
	if s.Rate.IsZero() {
		return ValidationError{Field: "rate", Message: "must be positive"}
	}

	if s.ID.IsNil() {
		s.ID = id.NewSaleID()
	}
	s.Entity = types.NewEntity()
	if s.Status == "" {
		s.Status = sale.StatusActive
	}

	e.mu.Lock()
	if _, err := e.store.GetToken(ctx, s.TokenID); err != nil {
		e.mu.Unlock()
		return err
	}
	if s.HasGate() {
		if _, err := e.store.GetGate(ctx, s.GateID); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	err := e.store.CreateSale(ctx, s)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.logger.Info("sale created",
		"sale_id", s.ID,
		"token_id", s.TokenID,
		"rate", s.Rate,
		"recipient", s.Recipient,
	)

	return nil
}

// GetSale retrieves a sale by ID.
func (e *Engine) GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.store.GetSale(ctx, saleID)
}

// IsPaused reports whether the sale is currently paused.
func (e *Engine) IsPaused(ctx context.Context, saleID id.SaleID) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return false, err
	}
	return s.IsPaused(), nil
}

// Purchase sells tokens to the buyer for the given payment. The token
// amount is payment * rate scaled down by the token's decimals, using
// truncating integer arithmetic. The transfer and allowance consumption
// apply atomically under the engine lock; the payment is then forwarded
// to the sale's recipient.
func (e *Engine) Purchase(ctx context.Context, saleID id.SaleID, buyer id.AccountID, payment types.Amount) (*sale.Receipt, error) {
	if buyer.IsNil() {
		return nil, ValidationError{Field: "buyer", Message: "must not be empty"}
	}

	s, tokenAmount, err := e.executePurchase(ctx, saleID, buyer, payment)
	if err != nil {
		if IsPurchaseRejected(err) {
			e.plugins.EmitPurchaseRejected(ctx, saleID.String(), buyer.String(), err)
			e.logger.Debug("purchase rejected",
				"sale_id", saleID,
				"buyer", buyer,
				"reason", err,
			)
		}
		return nil, err
	}

	receipt := &sale.Receipt{
		SaleID:      s.ID,
		Buyer:       buyer,
		Payment:     payment,
		TokenAmount: tokenAmount,
		Recipient:   s.Recipient,
	}

	// Forward the payment once the ledger transfer has committed. A
	// forwarding failure does not unwind the purchase.
	for _, f := range e.plugins.GetPaymentForwarders() {
		if err := f.ForwardPayment(ctx, s.Recipient.String(), payment.String()); err != nil {
			e.logger.Warn("payment forwarding failed",
				"forwarder", f.Name(),
				"sale_id", s.ID,
				"recipient", s.Recipient,
				"error", err,
			)
		}
	}

	e.plugins.EmitTokensPurchased(ctx, receipt)
	e.journal(&event.Record{
		Type:    event.TypeTokensPurchased,
		SaleID:  s.ID,
		TokenID: s.TokenID,
		Account: buyer,
		Amount:  tokenAmount,
		Payment: payment,
	})

	e.logger.Info("tokens purchased",
		"sale_id", s.ID,
		"buyer", buyer,
		"payment", payment,
		"token_amount", tokenAmount,
	)

	return receipt, nil
}

// executePurchase runs the precondition chain and the ledger transfer
// under the engine lock. The unlock is deferred so a panicking store
// backend cannot strand the lock.
func (e *Engine) executePurchase(ctx context.Context, saleID id.SaleID, buyer id.AccountID, payment types.Amount) (*sale.Sale, types.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	zero := types.ZeroAmount()

	s, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, zero, err
	}
	if s.IsPaused() {
		return nil, zero, ErrSalePaused
	}

	if s.HasGate() {
		approved, err := e.store.GetApproval(ctx, s.GateID, buyer)
		if err != nil {
			return nil, zero, err
		}
		if !approved {
			return nil, zero, ErrKYCIncomplete
		}
	}

	if payment.IsZero() {
		return nil, zero, ErrZeroPayment
	}

	t, err := e.store.GetToken(ctx, s.TokenID)
	if err != nil {
		return nil, zero, err
	}
	tokenAmount, ok := s.TokenAmount(payment, t.Scale())
	if !ok {
		return nil, zero, ErrPaymentOverflow
	}

	// Distinguish a never-granted allowance from an exhausted one.
	allowance, err := e.store.GetAllowance(ctx, s.TokenID, s.TokenSource, s.ID)
	if err != nil {
		return nil, zero, err
	}
	if allowance.IsZero() {
		return nil, zero, ErrNoSellAllowance
	}
	if allowance.LessThan(tokenAmount) {
		return nil, zero, ErrExceedsAllowance
	}

	if err := e.transferFrom(ctx, s.TokenID, s.TokenSource, buyer, s.ID, tokenAmount); err != nil {
		return nil, zero, err
	}

	return s, tokenAmount, nil
}

// Pause stops the sale. Only the sale owner may pause; pausing an
// already paused sale is a no-op.
func (e *Engine) Pause(ctx context.Context, saleID id.SaleID, caller id.AccountID) error {
	s, changed, err := e.setStatus(ctx, saleID, caller, sale.StatusPaused)
	if err != nil || !changed {
		return err
	}

	e.plugins.EmitSaleStopped(ctx, s)
	e.journal(&event.Record{
		Type:    event.TypeSaleStopped,
		SaleID:  s.ID,
		Account: caller,
	})

	return nil
}

// Unpause resumes a paused sale. Only the sale owner may unpause;
// unpausing an active sale is a no-op.
func (e *Engine) Unpause(ctx context.Context, saleID id.SaleID, caller id.AccountID) error {
	s, changed, err := e.setStatus(ctx, saleID, caller, sale.StatusActive)
	if err != nil || !changed {
		return err
	}

	e.plugins.EmitSaleStarted(ctx, s)
	e.journal(&event.Record{
		Type:    event.TypeSaleStarted,
		SaleID:  s.ID,
		Account: caller,
	})

	return nil
}

func (e *Engine) setStatus(ctx context.Context, saleID id.SaleID, caller id.AccountID, status sale.Status) (*sale.Sale, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, false, err
	}
	if caller != s.Owner {
		return nil, false, ErrNotOwner
	}
	if s.Status == status {
		return s, false, nil
	}

	s.Status = status
	s.UpdatedAt = time.Now()
	if err := e.store.UpdateSale(ctx, s); err != nil {
		return nil, false, err
	}

	return s, true, nil
}

// ChangeRecipient redirects future payments to a new recipient account.
// Only the sale owner may change the recipient.
func (e *Engine) ChangeRecipient(ctx context.Context, saleID id.SaleID, caller, recipient id.AccountID) error {
	if recipient.IsNil() {
		return ValidationError{Field: "recipient", Message: "must not be empty"}
	}

	e.mu.Lock()
	s, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if caller != s.Owner {
		e.mu.Unlock()
		return ErrNotOwner
	}

	old := s.Recipient
	s.Recipient = recipient
	s.UpdatedAt = time.Now()
	if err := e.store.UpdateSale(ctx, s); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.plugins.EmitRecipientChanged(ctx, s, old.String(), recipient.String())
	e.journal(&event.Record{
		Type:    event.TypeRecipientChanged,
		SaleID:  s.ID,
		Account: recipient,
	})

	return nil
}

// ChangeRate sets a new exchange rate for future purchases. Only the
// sale owner may change the rate, and the rate must stay positive.
func (e *Engine) ChangeRate(ctx context.Context, saleID id.SaleID, caller id.AccountID, rate types.Amount) error {
	if rate.IsZero() {
		return ValidationError{Field: "rate", Message: "must be positive"}
	}

	e.mu.Lock()
	s, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if caller != s.Owner {
		e.mu.Unlock()
		return ErrNotOwner
	}

	old := s.Rate
	s.Rate = rate
	s.UpdatedAt = time.Now()
	if err := e.store.UpdateSale(ctx, s); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.plugins.EmitRateChanged(ctx, s, old.String(), rate.String())
	e.journal(&event.Record{
		Type:    event.TypeRateChanged,
		SaleID:  s.ID,
		Account: caller,
		Amount:  rate,
	})

	return nil
}
