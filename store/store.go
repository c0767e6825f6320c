package store

import (
	"context"
	"time"

	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/sale"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

// Store is the unified storage interface for all token sale entities.
// Instead of embedding sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Token methods
	CreateToken(ctx context.Context, t *token.Token) error
	GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error)
	UpdateToken(ctx context.Context, t *token.Token) error
	GetBalance(ctx context.Context, tokenID id.TokenID, account id.AccountID) (types.Amount, error)
	GetAllowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID) (types.Amount, error)
	SetAllowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID, amount types.Amount) error
	// ApplyMint writes the account's new balance and the token's new
	// minted total as one logical mutation. The engine validates and
	// computes both values under its global lock.
	ApplyMint(ctx context.Context, tokenID id.TokenID, account id.AccountID, newBalance, newTotalMinted types.Amount) error
	// ApplyTransfer writes the new from/to balances and the remaining
	// owner/spender allowance as one logical mutation.
	ApplyTransfer(ctx context.Context, tokenID id.TokenID, from, to, spender id.AccountID, newFromBalance, newToBalance, newAllowance types.Amount) error

	// Compliance gate methods
	CreateGate(ctx context.Context, g *kyc.Gate) error
	GetGate(ctx context.Context, gateID id.GateID) (*kyc.Gate, error)
	GetApproval(ctx context.Context, gateID id.GateID, account id.AccountID) (bool, error)
	SetApproval(ctx context.Context, gateID id.GateID, account id.AccountID, approved bool) error

	// Sale methods
	CreateSale(ctx context.Context, s *sale.Sale) error
	GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error)
	UpdateSale(ctx context.Context, s *sale.Sale) error

	// Journal methods
	AppendEvents(ctx context.Context, records []*event.Record) error
	ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error)
	PurgeEvents(ctx context.Context, before time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
