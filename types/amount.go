// Package types provides common types used across TokenSale.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount represents a token or payment quantity in the smallest
// denomination, backed by a 256-bit unsigned integer. All arithmetic is
// integer-only, and division truncates toward zero.
//
// Examples:
//   - Units(1, 18)   = 1 whole token with 18 decimals (10^18 base units)
//   - NewAmount(500) = 500 base units
type Amount struct {
	v uint256.Int
}

// NewAmount creates an Amount from a uint64 base-unit value.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Units creates an Amount of `units` whole tokens scaled by 10^decimals.
// Panics on overflow (programming error: supply parameters are bounded).
func Units(units uint64, decimals uint8) Amount {
	return NewAmount(units).Mul(Pow10(decimals))
}

// Pow10 returns 10^exp as an Amount.
func Pow10(exp uint8) Amount {
	var a Amount
	a.v.SetUint64(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < exp; i++ {
		a.v.Mul(&a.v, ten)
	}
	return a
}

// CheckedUnits is like Units but reports whether the scaled value fits
// in 256 bits instead of panicking. Use it when units and decimals come
// from callers rather than constants.
func CheckedUnits(units uint64, decimals uint8) (Amount, bool) {
	// 10^78 already exceeds 256 bits.
	if decimals > 77 {
		return Amount{}, false
	}
	return NewAmount(units).CheckedMul(Pow10(decimals))
}

// ZeroAmount returns the zero Amount.
func ZeroAmount() Amount { return Amount{} }

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is like ParseAmount but panics on error.
// Use for hardcoded values.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Arithmetic operations

// Add returns a + other. Panics on 256-bit overflow.
func (a Amount) Add(other Amount) Amount {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &other.v); overflow {
		panic("amount: addition overflow")
	}
	return r
}

// Sub returns a - other. Panics on underflow; callers must check
// ordering first via Cmp or LessThan.
func (a Amount) Sub(other Amount) Amount {
	if a.v.Cmp(&other.v) < 0 {
		panic("amount: subtraction underflow")
	}
	var r Amount
	r.v.Sub(&a.v, &other.v)
	return r
}

// Mul returns a * other. Panics on 256-bit overflow.
func (a Amount) Mul(other Amount) Amount {
	var r Amount
	if _, overflow := r.v.MulOverflow(&a.v, &other.v); overflow {
		panic("amount: multiplication overflow")
	}
	return r
}

// CheckedAdd returns a + other and reports whether the sum fits in
// 256 bits. It never panics; use it on caller-supplied values.
func (a Amount) CheckedAdd(other Amount) (Amount, bool) {
	var r Amount
	_, overflow := r.v.AddOverflow(&a.v, &other.v)
	return r, !overflow
}

// CheckedMul returns a * other and reports whether the product fits in
// 256 bits. It never panics; use it on caller-supplied values.
func (a Amount) CheckedMul(other Amount) (Amount, bool) {
	var r Amount
	_, overflow := r.v.MulOverflow(&a.v, &other.v)
	return r, !overflow
}

// Div returns a / other, truncating toward zero. Panics on division by zero.
func (a Amount) Div(other Amount) Amount {
	if other.v.IsZero() {
		panic("amount: division by zero")
	}
	var r Amount
	r.v.Div(&a.v, &other.v)
	return r
}

// Comparison operations

// Cmp returns -1, 0 or 1 depending on whether a is less than, equal to
// or greater than other.
func (a Amount) Cmp(other Amount) int {
	return a.v.Cmp(&other.v)
}

// Equal returns true if both Amounts are equal.
func (a Amount) Equal(other Amount) bool { return a.v.Eq(&other.v) }

// LessThan returns true if a is strictly less than other.
func (a Amount) LessThan(other Amount) bool { return a.v.Lt(&other.v) }

// GreaterThan returns true if a is strictly greater than other.
func (a Amount) GreaterThan(other Amount) bool { return a.v.Gt(&other.v) }

// IsZero returns true for the zero Amount.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Uint64 returns the amount as a uint64. Panics if it does not fit.
func (a Amount) Uint64() uint64 {
	if !a.v.IsUint64() {
		panic("amount: value exceeds uint64")
	}
	return a.v.Uint64()
}

// String returns the base-10 representation of the amount.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Amount{}
		return nil
	}
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. Amounts serialize as decimal
// strings: 256-bit values do not fit JSON numbers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.Dec())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount: unmarshal: %w", err)
	}
	return a.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer for database storage.
func (a Amount) Value() (driver.Value, error) {
	return a.v.Dec(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("amount: cannot scan negative value %d", v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T into Amount", src)
	}
}

// SumAmounts calculates the sum of multiple Amounts.
func SumAmounts(values ...Amount) Amount {
	var result Amount
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
