package tokensale

import "github.com/xraph/tokensale/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	NewAmount    = types.NewAmount
	Units        = types.Units
	CheckedUnits = types.CheckedUnits
	Pow10        = types.Pow10
	ZeroAmount   = types.ZeroAmount
	ParseAmount  = types.ParseAmount
	SumAmounts   = types.SumAmounts
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
