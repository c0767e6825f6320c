package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/tokensale"
	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/sale"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

type Store struct {
	mu sync.RWMutex

	// Token storage
	tokens     map[string]*token.Token
	balances   map[string]types.Amount // tokenID:account
	allowances map[string]types.Amount // tokenID:owner:spender

	// Compliance storage
	gates     map[string]*kyc.Gate
	approvals map[string]bool // gateID:account

	// Sale storage
	sales map[string]*sale.Sale

	// Journal storage
	events []event.Record
}

func New() *Store {
	return &Store{
		tokens:     make(map[string]*token.Token),
		balances:   make(map[string]types.Amount),
		allowances: make(map[string]types.Amount),
		gates:      make(map[string]*kyc.Gate),
		approvals:  make(map[string]bool),
		sales:      make(map[string]*sale.Sale),
		events:     make([]event.Record, 0),
	}
}

func balanceKey(tokenID id.TokenID, account id.AccountID) string {
	return fmt.Sprintf("%s:%s", tokenID, account)
}

func allowanceKey(tokenID id.TokenID, owner, spender id.AccountID) string {
	return fmt.Sprintf("%s:%s:%s", tokenID, owner, spender)
}

func approvalKey(gateID id.GateID, account id.AccountID) string {
	return fmt.Sprintf("%s:%s", gateID, account)
}

// Token Store implementation
func (s *Store) CreateToken(_ context.Context, t *token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[t.ID.String()]; exists {
		return tokensale.ErrAlreadyExists
	}
	s.tokens[t.ID.String()] = t
	return nil
}

func (s *Store) GetToken(_ context.Context, tokenID id.TokenID) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tokens[tokenID.String()]; ok {
		return t, nil
	}
	return nil, tokensale.ErrTokenNotFound
}

func (s *Store) UpdateToken(_ context.Context, t *token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[t.ID.String()]; !exists {
		return tokensale.ErrTokenNotFound
	}
	s.tokens[t.ID.String()] = t
	return nil
}

func (s *Store) GetBalance(_ context.Context, tokenID id.TokenID, account id.AccountID) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[balanceKey(tokenID, account)], nil
}

func (s *Store) GetAllowance(_ context.Context, tokenID id.TokenID, owner, spender id.AccountID) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.allowances[allowanceKey(tokenID, owner, spender)], nil
}

func (s *Store) SetAllowance(_ context.Context, tokenID id.TokenID, owner, spender id.AccountID, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowances[allowanceKey(tokenID, owner, spender)] = amount
	return nil
}

func (s *Store) ApplyMint(_ context.Context, tokenID id.TokenID, account id.AccountID, newBalance, newTotalMinted types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenID.String()]
	if !ok {
		return tokensale.ErrTokenNotFound
	}

	s.balances[balanceKey(tokenID, account)] = newBalance
	t.TotalMinted = newTotalMinted
	t.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ApplyTransfer(_ context.Context, tokenID id.TokenID, from, to, spender id.AccountID, newFromBalance, newToBalance, newAllowance types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[tokenID.String()]; !ok {
		return tokensale.ErrTokenNotFound
	}

	s.balances[balanceKey(tokenID, from)] = newFromBalance
	s.balances[balanceKey(tokenID, to)] = newToBalance
	s.allowances[allowanceKey(tokenID, from, spender)] = newAllowance
	return nil
}

// Compliance Store implementation
func (s *Store) CreateGate(_ context.Context, g *kyc.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.gates[g.ID.String()]; exists {
		return tokensale.ErrAlreadyExists
	}
	s.gates[g.ID.String()] = g
	return nil
}

func (s *Store) GetGate(_ context.Context, gateID id.GateID) (*kyc.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.gates[gateID.String()]; ok {
		return g, nil
	}
	return nil, tokensale.ErrGateNotFound
}

func (s *Store) GetApproval(_ context.Context, gateID id.GateID, account id.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.approvals[approvalKey(gateID, account)], nil
}

func (s *Store) SetApproval(_ context.Context, gateID id.GateID, account id.AccountID, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gates[gateID.String()]; !ok {
		return tokensale.ErrGateNotFound
	}
	s.approvals[approvalKey(gateID, account)] = approved
	return nil
}

// Sale Store implementation
func (s *Store) CreateSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sl.ID.String()]; exists {
		return tokensale.ErrAlreadyExists
	}
	s.sales[sl.ID.String()] = sl
	return nil
}

func (s *Store) GetSale(_ context.Context, saleID id.SaleID) (*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sl, ok := s.sales[saleID.String()]; ok {
		return sl, nil
	}
	return nil, tokensale.ErrSaleNotFound
}

func (s *Store) UpdateSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sl.ID.String()]; !exists {
		return tokensale.ErrSaleNotFound
	}
	s.sales[sl.ID.String()] = sl
	return nil
}

// Journal Store implementation
func (s *Store) AppendEvents(_ context.Context, records []*event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.events = append(s.events, *r)
	}
	return nil
}

func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Record, 0)
	for i := range s.events {
		r := &s.events[i]
		if !opts.SaleID.IsNil() && r.SaleID != opts.SaleID {
			continue
		}
		if !opts.TokenID.IsNil() && r.TokenID != opts.TokenID {
			continue
		}
		if opts.Type != "" && r.Type != opts.Type {
			continue
		}
		if !opts.Start.IsZero() && r.OccurredAt.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && r.OccurredAt.After(opts.End) {
			continue
		}
		result = append(result, r)
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) PurgeEvents(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	kept := make([]event.Record, 0)
	for _, r := range s.events {
		if r.OccurredAt.Before(before) {
			count++
		} else {
			kept = append(kept, r)
		}
	}
	s.events = kept
	return count, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
