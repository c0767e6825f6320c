// Package token defines the supply-capped fungible token ledger model.
package token

import (
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/types"
)

// Token is a supply-capped fungible token ledger. Name, Symbol and
// Decimals are immutable after creation; MaxSupply is derived from
// SupplyUnits at creation time and never changes. Only Owner may mint.
type Token struct {
	types.Entity
	ID          id.TokenID        `json:"id"`
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Decimals    uint8             `json:"decimals"`
	SupplyUnits uint64            `json:"supply_units"`
	MaxSupply   types.Amount      `json:"max_supply"`
	TotalMinted types.Amount      `json:"total_minted"`
	Owner       id.AccountID      `json:"owner"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Scale returns 10^Decimals, the divisor used for rate conversion.
func (t *Token) Scale() types.Amount {
	return types.Pow10(t.Decimals)
}

// Remaining returns the amount that can still be minted before the cap.
func (t *Token) Remaining() types.Amount {
	return t.MaxSupply.Sub(t.TotalMinted)
}

// CanMint reports whether minting amount would stay within MaxSupply.
// A sum that does not fit in 256 bits cannot stay within any cap.
func (t *Token) CanMint(amount types.Amount) bool {
	sum, ok := t.TotalMinted.CheckedAdd(amount)
	return ok && !sum.GreaterThan(t.MaxSupply)
}
