package types

import (
	"encoding/json"
	"testing"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		display string
	}{
		{"Zero", ZeroAmount(), "0"},
		{"Base units", NewAmount(500), "500"},
		{"One whole token 18 decimals", Units(1, 18), "1000000000000000000"},
		{"Supply cap", Units(1_000_000, 18), "1000000000000000000000000"},
		{"Pow10 zero", Pow10(0), "1"},
		{"Pow10 six", Pow10(6), "1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return NewAmount(100).Add(NewAmount(200)) }, NewAmount(300)},
		{"Sub", func() Amount { return NewAmount(500).Sub(NewAmount(200)) }, NewAmount(300)},
		{"Mul", func() Amount { return NewAmount(100).Mul(NewAmount(3)) }, NewAmount(300)},
		{"Div", func() Amount { return NewAmount(900).Div(NewAmount(3)) }, NewAmount(300)},
		{"Div truncates", func() Amount { return NewAmount(7).Div(NewAmount(2)) }, NewAmount(3)},
		{"Sum", func() Amount { return SumAmounts(NewAmount(1), NewAmount(2), NewAmount(3)) }, NewAmount(6)},
		{"Rate conversion", func() Amount {
			// floor(payment * rate / 10^decimals) with one whole payment unit
			return Units(1, 18).Mul(NewAmount(500)).Div(Pow10(18))
		}, NewAmount(500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); !got.Equal(tt.expected) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestAmountComparison(t *testing.T) {
	small, large := NewAmount(1), NewAmount(2)

	if !small.LessThan(large) {
		t.Error("expected 1 < 2")
	}
	if !large.GreaterThan(small) {
		t.Error("expected 2 > 1")
	}
	if small.Cmp(large) != -1 || large.Cmp(small) != 1 || small.Cmp(small) != 0 {
		t.Error("Cmp ordering mismatch")
	}
	if !ZeroAmount().IsZero() || small.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestAmountPanics(t *testing.T) {
	tests := []struct {
		name string
		op   func()
	}{
		{"Sub underflow", func() { NewAmount(1).Sub(NewAmount(2)) }},
		{"Div by zero", func() { NewAmount(1).Div(ZeroAmount()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.op()
		})
	}
}

func TestAmountCheckedArithmetic(t *testing.T) {
	maxValue := MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	halfRange := MustParseAmount("57896044618658097711785492504343953926634992332820282019728792003956564819968")

	tests := []struct {
		name string
		op   func() (Amount, bool)
		want Amount
		ok   bool
	}{
		{"Add in range", func() (Amount, bool) { return NewAmount(100).CheckedAdd(NewAmount(200)) }, NewAmount(300), true},
		{"Add overflow", func() (Amount, bool) { return maxValue.CheckedAdd(NewAmount(1)) }, ZeroAmount(), false},
		{"Mul in range", func() (Amount, bool) { return NewAmount(100).CheckedMul(NewAmount(3)) }, NewAmount(300), true},
		{"Mul overflow", func() (Amount, bool) { return halfRange.CheckedMul(NewAmount(2)) }, ZeroAmount(), false},
		{"Units in range", func() (Amount, bool) { return CheckedUnits(1, 18) }, Units(1, 18), true},
		{"Units overflow", func() (Amount, bool) { return CheckedUnits(1, 78) }, ZeroAmount(), false},
		{"Units scaled overflow", func() (Amount, bool) { return CheckedUnits(1<<63, 77) }, ZeroAmount(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.op()
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountParseRoundTrip(t *testing.T) {
	tests := []string{"0", "500", "1000000000000000000000000"}

	for _, s := range tests {
		parsed, err := ParseAmount(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if parsed.String() != s {
			t.Errorf("round-trip mismatch: %q != %q", parsed.String(), s)
		}
	}

	if _, err := ParseAmount("not-a-number"); err == nil {
		t.Error("expected parse error")
	}
}

func TestAmountJSON(t *testing.T) {
	original := Units(500, 18)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"500000000000000000000"` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(original) {
		t.Errorf("round-trip mismatch: %s != %s", decoded, original)
	}
}

func TestAmountScanValue(t *testing.T) {
	original := Units(42, 18)

	v, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}

	var scanned Amount
	if err := scanned.Scan(v); err != nil {
		t.Fatal(err)
	}
	if !scanned.Equal(original) {
		t.Errorf("round-trip mismatch: %s != %s", scanned, original)
	}

	if err := scanned.Scan(3.14); err == nil {
		t.Error("expected scan error for float64")
	}
}
