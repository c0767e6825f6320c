package tokensale_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tokensale "github.com/xraph/tokensale"
	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/sale"
	"github.com/xraph/tokensale/store/memory"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

// captureState holds the notification counts a capturePlugin observed.
type captureState struct {
	minted      int
	purchased   int
	rejections  []error
	stopped     int
	started     int
	kycApproved int
	kycRevoked  int
	forwarded   []string
}

// capturePlugin records engine lifecycle notifications for assertions.
type capturePlugin struct {
	mu sync.Mutex
	captureState
	forwardErr error
}

func (p *capturePlugin) Name() string { return "capture" }

func (p *capturePlugin) OnMinted(_ context.Context, _ interface{}, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minted++
	return nil
}

func (p *capturePlugin) OnTokensPurchased(_ context.Context, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchased++
	return nil
}

func (p *capturePlugin) OnPurchaseRejected(_ context.Context, _, _ string, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejections = append(p.rejections, err)
	return nil
}

func (p *capturePlugin) OnSaleStopped(_ context.Context, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	return nil
}

func (p *capturePlugin) OnSaleStarted(_ context.Context, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	return nil
}

func (p *capturePlugin) OnKYCApproved(_ context.Context, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kycApproved++
	return nil
}

func (p *capturePlugin) OnKYCRevoked(_ context.Context, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kycRevoked++
	return nil
}

func (p *capturePlugin) ForwardPayment(_ context.Context, recipient, amount string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.forwardErr != nil {
		return p.forwardErr
	}
	p.forwarded = append(p.forwarded, recipient+"="+amount)
	return nil
}

func (p *capturePlugin) snapshot() captureState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.captureState
	s.rejections = append([]error(nil), p.rejections...)
	s.forwarded = append([]string(nil), p.forwarded...)
	return s
}

func newTestEngine(t *testing.T, opts ...tokensale.Option) *tokensale.Engine {
	t.Helper()

	e := tokensale.New(memory.New(), opts...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Stop(); err != nil {
			t.Errorf("stop engine: %v", err)
		}
	})
	return e
}

func newTestToken(t *testing.T, e *tokensale.Engine, owner id.AccountID) *token.Token {
	t.Helper()

	tok := &token.Token{
		Name:        "Example Token",
		Symbol:      "EXT",
		Decimals:    18,
		SupplyUnits: 1_000_000,
		Owner:       owner,
	}
	if err := e.CreateToken(context.Background(), tok); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return tok
}

func newTestSale(t *testing.T, e *tokensale.Engine, tok *token.Token, owner, recipient id.AccountID, rate types.Amount) *sale.Sale {
	t.Helper()

	s := &sale.Sale{
		TokenID:     tok.ID,
		Owner:       owner,
		TokenSource: owner,
		Recipient:   recipient,
		Rate:        rate,
	}
	if err := e.CreateSale(context.Background(), s); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return s
}

func TestCreateToken(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	owner := id.NewAccountID()

	t.Run("Valid", func(t *testing.T) {
		tok := newTestToken(t, e, owner)

		if tok.ID.IsNil() {
			t.Fatal("expected token ID to be assigned")
		}

		got, err := e.GetToken(ctx, tok.ID)
		if err != nil {
			t.Fatalf("get token: %v", err)
		}
		wantMax := types.Units(1_000_000, 18)
		if !got.MaxSupply.Equal(wantMax) {
			t.Errorf("max supply = %s, want %s", got.MaxSupply, wantMax)
		}
		if !got.TotalMinted.IsZero() {
			t.Errorf("total minted = %s, want 0", got.TotalMinted)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		tests := []struct {
			name  string
			tok   *token.Token
			field string
		}{
			{
				name:  "MissingName",
				tok:   &token.Token{Symbol: "EXT", SupplyUnits: 10, Owner: owner},
				field: "name",
			},
			{
				name:  "MissingSymbol",
				tok:   &token.Token{Name: "Example", SupplyUnits: 10, Owner: owner},
				field: "symbol",
			},
			{
				name:  "ZeroSupply",
				tok:   &token.Token{Name: "Example", Symbol: "EXT", Owner: owner},
				field: "supply_units",
			},
			{
				name:  "MissingOwner",
				tok:   &token.Token{Name: "Example", Symbol: "EXT", SupplyUnits: 10},
				field: "owner",
			},
			{
				name:  "OverflowingSupply",
				tok:   &token.Token{Name: "Example", Symbol: "EXT", Decimals: 77, SupplyUnits: math.MaxUint64, Owner: owner},
				field: "supply_units",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := e.CreateToken(ctx, tt.tok)
				var verr tokensale.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Field != tt.field {
					t.Errorf("field = %q, want %q", verr.Field, tt.field)
				}
			})
		}
	})
}

func TestMint(t *testing.T) {
	ctx := context.Background()
	plug := &capturePlugin{}
	e := newTestEngine(t, tokensale.WithPlugin(plug))

	owner := id.NewAccountID()
	stranger := id.NewAccountID()
	holder := id.NewAccountID()
	tok := newTestToken(t, e, owner)

	t.Run("NotOwner", func(t *testing.T) {
		err := e.Mint(ctx, tok.ID, stranger, holder, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner, got %v", err)
		}
	})

	t.Run("ExceedsMaxSupply", func(t *testing.T) {
		err := e.Mint(ctx, tok.ID, owner, holder, types.Units(1_000_001, 18))
		if !errors.Is(err, tokensale.ErrExceedsMaxSupply) {
			t.Fatalf("expected ErrExceedsMaxSupply, got %v", err)
		}
	})

	t.Run("Valid", func(t *testing.T) {
		if err := e.Mint(ctx, tok.ID, owner, holder, types.Units(1000, 18)); err != nil {
			t.Fatalf("mint: %v", err)
		}

		balance, err := e.BalanceOf(ctx, tok.ID, holder)
		if err != nil {
			t.Fatalf("balance of: %v", err)
		}
		if want := types.Units(1000, 18); !balance.Equal(want) {
			t.Errorf("balance = %s, want %s", balance, want)
		}

		minted, err := e.TotalMinted(ctx, tok.ID)
		if err != nil {
			t.Fatalf("total minted: %v", err)
		}
		if want := types.Units(1000, 18); !minted.Equal(want) {
			t.Errorf("total minted = %s, want %s", minted, want)
		}

		if got := plug.snapshot(); got.minted != 1 {
			t.Errorf("OnMinted calls = %d, want 1", got.minted)
		}
	})

	t.Run("MintToCap", func(t *testing.T) {
		// Minting the exact remainder is allowed, one more unit is not.
		remaining := types.Units(1_000_000-1000, 18)
		if err := e.Mint(ctx, tok.ID, owner, holder, remaining); err != nil {
			t.Fatalf("mint remainder: %v", err)
		}
		err := e.Mint(ctx, tok.ID, owner, holder, types.NewAmount(1))
		if !errors.Is(err, tokensale.ErrExceedsMaxSupply) {
			t.Fatalf("expected ErrExceedsMaxSupply, got %v", err)
		}
	})

	t.Run("UnknownToken", func(t *testing.T) {
		err := e.Mint(ctx, id.NewTokenID(), owner, holder, types.NewAmount(1))
		if !errors.Is(err, tokensale.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	owner := id.NewAccountID()
	spender := id.NewAccountID()
	tok := newTestToken(t, e, owner)

	t.Run("DefaultZero", func(t *testing.T) {
		allowance, err := e.Allowance(ctx, tok.ID, owner, spender)
		if err != nil {
			t.Fatalf("allowance: %v", err)
		}
		if !allowance.IsZero() {
			t.Errorf("allowance = %s, want 0", allowance)
		}
	})

	t.Run("SetAndReplace", func(t *testing.T) {
		if err := e.Approve(ctx, tok.ID, owner, spender, types.Units(500, 18)); err != nil {
			t.Fatalf("approve: %v", err)
		}

		allowance, err := e.Allowance(ctx, tok.ID, owner, spender)
		if err != nil {
			t.Fatalf("allowance: %v", err)
		}
		if want := types.Units(500, 18); !allowance.Equal(want) {
			t.Errorf("allowance = %s, want %s", allowance, want)
		}

		// A later approval replaces the previous amount rather than adding.
		if err := e.Approve(ctx, tok.ID, owner, spender, types.Units(20, 18)); err != nil {
			t.Fatalf("approve: %v", err)
		}
		allowance, err = e.Allowance(ctx, tok.ID, owner, spender)
		if err != nil {
			t.Fatalf("allowance: %v", err)
		}
		if want := types.Units(20, 18); !allowance.Equal(want) {
			t.Errorf("allowance = %s, want %s", allowance, want)
		}
	})

	t.Run("UnknownToken", func(t *testing.T) {
		err := e.Approve(ctx, id.NewTokenID(), owner, spender, types.NewAmount(1))
		if !errors.Is(err, tokensale.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
	})
}

func TestComplianceGate(t *testing.T) {
	ctx := context.Background()
	plug := &capturePlugin{}
	e := newTestEngine(t, tokensale.WithPlugin(plug))

	validator := id.NewAccountID()
	stranger := id.NewAccountID()
	account := id.NewAccountID()

	gate := &kyc.Gate{Validator: validator}
	if err := e.CreateGate(ctx, gate); err != nil {
		t.Fatalf("create gate: %v", err)
	}

	t.Run("DefaultNotApproved", func(t *testing.T) {
		approved, err := e.IsApproved(ctx, gate.ID, account)
		if err != nil {
			t.Fatalf("is approved: %v", err)
		}
		if approved {
			t.Error("expected account to start unapproved")
		}
	})

	t.Run("NotValidator", func(t *testing.T) {
		err := e.SetApproved(ctx, gate.ID, stranger, account)
		if !errors.Is(err, tokensale.ErrNotValidator) {
			t.Fatalf("expected ErrNotValidator, got %v", err)
		}
		err = e.SetRevoked(ctx, gate.ID, stranger, account)
		if !errors.Is(err, tokensale.ErrNotValidator) {
			t.Fatalf("expected ErrNotValidator, got %v", err)
		}
	})

	t.Run("ApproveRevokeCycle", func(t *testing.T) {
		if err := e.SetApproved(ctx, gate.ID, validator, account); err != nil {
			t.Fatalf("set approved: %v", err)
		}
		approved, err := e.IsApproved(ctx, gate.ID, account)
		if err != nil {
			t.Fatalf("is approved: %v", err)
		}
		if !approved {
			t.Error("expected account to be approved")
		}

		if err := e.SetRevoked(ctx, gate.ID, validator, account); err != nil {
			t.Fatalf("set revoked: %v", err)
		}
		approved, err = e.IsApproved(ctx, gate.ID, account)
		if err != nil {
			t.Fatalf("is approved: %v", err)
		}
		if approved {
			t.Error("expected account approval to be revoked")
		}

		got := plug.snapshot()
		if got.kycApproved != 1 || got.kycRevoked != 1 {
			t.Errorf("kyc notifications = %d approved / %d revoked, want 1/1", got.kycApproved, got.kycRevoked)
		}
	})

	t.Run("UnknownGate", func(t *testing.T) {
		_, err := e.IsApproved(ctx, id.NewGateID(), account)
		if !errors.Is(err, tokensale.ErrGateNotFound) {
			t.Fatalf("expected ErrGateNotFound, got %v", err)
		}
	})
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	plug := &capturePlugin{}
	e := newTestEngine(t, tokensale.WithPlugin(plug))

	owner := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(1_000_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Rate of 500 whole tokens per whole payment unit.
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))

	// The sale spends on the owner's behalf up to the granted allowance.
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(500, 18)); err != nil {
		t.Fatalf("approve sale: %v", err)
	}

	t.Run("Valid", func(t *testing.T) {
		receipt, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}

		if want := types.Units(500, 18); !receipt.TokenAmount.Equal(want) {
			t.Errorf("token amount = %s, want %s", receipt.TokenAmount, want)
		}
		if receipt.Buyer != buyer {
			t.Errorf("receipt buyer = %s, want %s", receipt.Buyer, buyer)
		}
		if receipt.Recipient != treasury {
			t.Errorf("receipt recipient = %s, want %s", receipt.Recipient, treasury)
		}

		balance, err := e.BalanceOf(ctx, tok.ID, buyer)
		if err != nil {
			t.Fatalf("balance of: %v", err)
		}
		if want := types.Units(500, 18); !balance.Equal(want) {
			t.Errorf("buyer balance = %s, want %s", balance, want)
		}

		got := plug.snapshot()
		if got.purchased != 1 {
			t.Errorf("OnTokensPurchased calls = %d, want 1", got.purchased)
		}
		if len(got.forwarded) != 1 {
			t.Fatalf("forwarded payments = %d, want 1", len(got.forwarded))
		}
		if want := treasury.String() + "=" + types.Units(1, 18).String(); got.forwarded[0] != want {
			t.Errorf("forwarded = %q, want %q", got.forwarded[0], want)
		}
	})

	t.Run("ExhaustedAllowance", func(t *testing.T) {
		// The first purchase consumed the entire allowance, so the sale
		// is back to having no rights at all.
		_, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrNoSellAllowance) {
			t.Fatalf("expected ErrNoSellAllowance, got %v", err)
		}

		got := plug.snapshot()
		if len(got.rejections) == 0 || !errors.Is(got.rejections[len(got.rejections)-1], tokensale.ErrNoSellAllowance) {
			t.Errorf("expected rejection notification carrying ErrNoSellAllowance, got %v", got.rejections)
		}
	})

	t.Run("PartialAllowance", func(t *testing.T) {
		if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(100, 18)); err != nil {
			t.Fatalf("approve: %v", err)
		}

		// Requires 500 whole tokens but only 100 are left to sell.
		_, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrExceedsAllowance) {
			t.Fatalf("expected ErrExceedsAllowance, got %v", err)
		}
	})

	t.Run("ZeroPayment", func(t *testing.T) {
		_, err := e.Purchase(ctx, s.ID, buyer, types.ZeroAmount())
		if !errors.Is(err, tokensale.ErrZeroPayment) {
			t.Fatalf("expected ErrZeroPayment, got %v", err)
		}
	})

	t.Run("UnknownSale", func(t *testing.T) {
		_, err := e.Purchase(ctx, id.NewSaleID(), buyer, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrSaleNotFound) {
			t.Fatalf("expected ErrSaleNotFound, got %v", err)
		}
	})
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	owner := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)

	// The allowance outruns the source balance.
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(100, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(500, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
	if !errors.Is(err, tokensale.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPurchaseWithGate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	owner := id.NewAccountID()
	validator := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(10_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	gate := &kyc.Gate{Validator: validator}
	if err := e.CreateGate(ctx, gate); err != nil {
		t.Fatalf("create gate: %v", err)
	}

	s := &sale.Sale{
		TokenID:     tok.ID,
		GateID:      gate.ID,
		Owner:       owner,
		TokenSource: owner,
		Recipient:   treasury,
		Rate:        types.Units(500, 18),
	}
	if err := e.CreateSale(ctx, s); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(10_000, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	t.Run("RejectedWithoutKYC", func(t *testing.T) {
		_, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrKYCIncomplete) {
			t.Fatalf("expected ErrKYCIncomplete, got %v", err)
		}
	})

	t.Run("AllowedAfterApproval", func(t *testing.T) {
		if err := e.SetApproved(ctx, gate.ID, validator, buyer); err != nil {
			t.Fatalf("set approved: %v", err)
		}
		if _, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18)); err != nil {
			t.Fatalf("purchase: %v", err)
		}
	})

	t.Run("RejectedAfterRevocation", func(t *testing.T) {
		if err := e.SetRevoked(ctx, gate.ID, validator, buyer); err != nil {
			t.Fatalf("set revoked: %v", err)
		}
		_, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrKYCIncomplete) {
			t.Fatalf("expected ErrKYCIncomplete, got %v", err)
		}
	})
}

func TestPauseUnpause(t *testing.T) {
	ctx := context.Background()
	plug := &capturePlugin{}
	e := newTestEngine(t, tokensale.WithPlugin(plug))

	owner := id.NewAccountID()
	stranger := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(10_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(10_000, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	t.Run("NotOwner", func(t *testing.T) {
		if err := e.Pause(ctx, s.ID, stranger); !errors.Is(err, tokensale.ErrNotOwner) {
			t.Fatalf("expected ErrNotOwner, got %v", err)
		}
	})

	t.Run("PauseBlocksPurchases", func(t *testing.T) {
		if err := e.Pause(ctx, s.ID, owner); err != nil {
			t.Fatalf("pause: %v", err)
		}

		paused, err := e.IsPaused(ctx, s.ID)
		if err != nil {
			t.Fatalf("is paused: %v", err)
		}
		if !paused {
			t.Error("expected sale to be paused")
		}

		_, err = e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if !errors.Is(err, tokensale.ErrSalePaused) {
			t.Fatalf("expected ErrSalePaused, got %v", err)
		}
	})

	t.Run("PauseIdempotent", func(t *testing.T) {
		// Pausing again succeeds without another notification.
		if err := e.Pause(ctx, s.ID, owner); err != nil {
			t.Fatalf("pause: %v", err)
		}
		if got := plug.snapshot(); got.stopped != 1 {
			t.Errorf("OnSaleStopped calls = %d, want 1", got.stopped)
		}
	})

	t.Run("Unpause", func(t *testing.T) {
		if err := e.Unpause(ctx, s.ID, owner); err != nil {
			t.Fatalf("unpause: %v", err)
		}
		if _, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18)); err != nil {
			t.Fatalf("purchase after unpause: %v", err)
		}

		if err := e.Unpause(ctx, s.ID, owner); err != nil {
			t.Fatalf("unpause: %v", err)
		}
		if got := plug.snapshot(); got.started != 1 {
			t.Errorf("OnSaleStarted calls = %d, want 1", got.started)
		}
	})
}

func TestChangeRecipient(t *testing.T) {
	ctx := context.Background()
	plug := &capturePlugin{}
	e := newTestEngine(t, tokensale.WithPlugin(plug))

	owner := id.NewAccountID()
	stranger := id.NewAccountID()
	treasury := id.NewAccountID()
	vault := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(10_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(10_000, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := e.ChangeRecipient(ctx, s.ID, stranger, vault); !errors.Is(err, tokensale.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	if err := e.ChangeRecipient(ctx, s.ID, owner, vault); err != nil {
		t.Fatalf("change recipient: %v", err)
	}

	receipt, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if receipt.Recipient != vault {
		t.Errorf("receipt recipient = %s, want %s", receipt.Recipient, vault)
	}

	got := plug.snapshot()
	if len(got.forwarded) != 1 || !strings.HasPrefix(got.forwarded[0], vault.String()) {
		t.Errorf("expected payment forwarded to new recipient, got %v", got.forwarded)
	}
}

func TestChangeRate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	owner := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(10_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(10_000, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	t.Run("ZeroRate", func(t *testing.T) {
		err := e.ChangeRate(ctx, s.ID, owner, types.ZeroAmount())
		var verr tokensale.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("NewRateApplies", func(t *testing.T) {
		if err := e.ChangeRate(ctx, s.ID, owner, types.Units(250, 18)); err != nil {
			t.Fatalf("change rate: %v", err)
		}

		receipt, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
		if err != nil {
			t.Fatalf("purchase: %v", err)
		}
		if want := types.Units(250, 18); !receipt.TokenAmount.Equal(want) {
			t.Errorf("token amount = %s, want %s", receipt.TokenAmount, want)
		}
	})
}

func TestConcurrentPurchases(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	owner := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(1_000_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// One whole token per whole payment unit.
	s := newTestSale(t, e, tok, owner, treasury, types.Units(1, 18))

	// Allowance covers exactly half the attempted purchases.
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(50, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	const attempts = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Purchase(ctx, s.ID, buyer, types.Units(1, 18))
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case tokensale.IsAllowance(err):
				// Expected once the allowance runs out.
			default:
				t.Errorf("unexpected purchase error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 50 {
		t.Errorf("successful purchases = %d, want 50", succeeded)
	}

	balance, err := e.BalanceOf(ctx, tok.ID, buyer)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if want := types.Units(50, 18); !balance.Equal(want) {
		t.Errorf("buyer balance = %s, want %s", balance, want)
	}

	allowance, err := e.Allowance(ctx, tok.ID, owner, s.ID)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if !allowance.IsZero() {
		t.Errorf("allowance = %s, want 0", allowance)
	}
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, tokensale.WithJournalConfig(1, 10*time.Millisecond))

	owner := id.NewAccountID()
	holder := id.NewAccountID()
	tok := newTestToken(t, e, owner)

	if err := e.Mint(ctx, tok.ID, owner, holder, types.Units(10, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		records, err := e.Events(ctx, event.ListOpts{TokenID: tok.ID, Type: event.TypeMinted})
		if err != nil {
			t.Fatalf("events: %v", err)
		}
		if len(records) == 1 {
			r := records[0]
			if !r.Amount.Equal(types.Units(10, 18)) {
				t.Errorf("journal amount = %s, want %s", r.Amount, types.Units(10, 18))
			}
			if r.ID.IsNil() {
				t.Error("expected journal record to carry an event ID")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal record not flushed, got %d records", len(records))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{tokensale.ErrNotOwner, "caller is not the owner"},
		{tokensale.ErrNotValidator, "caller is not the validator"},
		{tokensale.ErrExceedsMaxSupply, "amount exceeding max supply"},
		{tokensale.ErrNoSellAllowance, "contract has no rights to sell tokens on owner's behalf"},
		{tokensale.ErrExceedsAllowance, "amount exceeds left allowance"},
		{tokensale.ErrKYCIncomplete, "caller KYC is not completed yet"},
		{tokensale.ErrSalePaused, "contract is paused"},
		{tokensale.ErrInsufficientFunds, "insufficient balance"},
		{tokensale.ErrPaymentOverflow, "payment times rate exceeds representable range"},
	}

	for _, tt := range tests {
		if !strings.Contains(tt.err.Error(), tt.want) {
			t.Errorf("error %q does not contain %q", tt.err, tt.want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	if !tokensale.IsAuthorization(tokensale.ErrNotOwner) {
		t.Error("ErrNotOwner should classify as authorization")
	}
	if !tokensale.IsAllowance(tokensale.ErrNoSellAllowance) {
		t.Error("ErrNoSellAllowance should classify as allowance")
	}
	if !tokensale.IsCompliance(tokensale.ErrKYCIncomplete) {
		t.Error("ErrKYCIncomplete should classify as compliance")
	}
	if !tokensale.IsPurchaseRejected(tokensale.ErrSalePaused) {
		t.Error("ErrSalePaused should classify as purchase rejection")
	}
	if tokensale.IsPurchaseRejected(tokensale.ErrSaleNotFound) {
		t.Error("ErrSaleNotFound should not classify as purchase rejection")
	}
	if !tokensale.IsPurchaseRejected(tokensale.ErrPaymentOverflow) {
		t.Error("ErrPaymentOverflow should classify as purchase rejection")
	}
	if !tokensale.IsNotFound(tokensale.ErrTokenNotFound) {
		t.Error("ErrTokenNotFound should classify as not found")
	}
}

func TestPurchaseOverflowingPayment(t *testing.T) {
	ctx := context.Background()
	plug := &capturePlugin{}
	e := newTestEngine(t, tokensale.WithPlugin(plug))

	owner := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(1_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(500, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// 2^255: multiplying by any rate above one no longer fits 256 bits.
	huge := types.MustParseAmount("57896044618658097711785492504343953926634992332820282019728792003956564819968")

	_, err := e.Purchase(ctx, s.ID, buyer, huge)
	if !errors.Is(err, tokensale.ErrPaymentOverflow) {
		t.Fatalf("expected ErrPaymentOverflow, got %v", err)
	}

	got := plug.snapshot()
	if len(got.rejections) != 1 || !errors.Is(got.rejections[0], tokensale.ErrPaymentOverflow) {
		t.Errorf("expected rejection notification carrying ErrPaymentOverflow, got %v", got.rejections)
	}

	// The engine must stay serviceable and the ledger untouched.
	balance, err := e.BalanceOf(ctx, tok.ID, buyer)
	if err != nil {
		t.Fatalf("balance of after rejected purchase: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("buyer balance = %s, want 0", balance)
	}
	allowance, err := e.Allowance(ctx, tok.ID, owner, s.ID)
	if err != nil {
		t.Fatalf("allowance after rejected purchase: %v", err)
	}
	if want := types.Units(500, 18); !allowance.Equal(want) {
		t.Errorf("allowance = %s, want %s", allowance, want)
	}
}

func TestMintOverflowingTotal(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	owner := id.NewAccountID()
	holder := id.NewAccountID()
	tok := newTestToken(t, e, owner)

	if err := e.Mint(ctx, tok.ID, owner, holder, types.Units(1, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// totalMinted plus 2^256-1 cannot fit 256 bits, let alone the cap.
	huge := types.MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	err := e.Mint(ctx, tok.ID, owner, holder, huge)
	if !errors.Is(err, tokensale.ErrExceedsMaxSupply) {
		t.Fatalf("expected ErrExceedsMaxSupply, got %v", err)
	}

	minted, err := e.TotalMinted(ctx, tok.ID)
	if err != nil {
		t.Fatalf("total minted: %v", err)
	}
	if want := types.Units(1, 18); !minted.Equal(want) {
		t.Errorf("total minted = %s, want %s", minted, want)
	}
}

func TestStopIdempotent(t *testing.T) {
	e := tokensale.New(memory.New())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestJournalPurchase(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, tokensale.WithJournalConfig(1, 10*time.Millisecond))

	owner := id.NewAccountID()
	treasury := id.NewAccountID()
	buyer := id.NewAccountID()

	tok := newTestToken(t, e, owner)
	if err := e.Mint(ctx, tok.ID, owner, owner, types.Units(10_000, 18)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s := newTestSale(t, e, tok, owner, treasury, types.Units(500, 18))
	if err := e.Approve(ctx, tok.ID, owner, s.ID, types.Units(500, 18)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	payment := types.Units(1, 18)
	receipt, err := e.Purchase(ctx, s.ID, buyer, payment)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		records, err := e.Events(ctx, event.ListOpts{SaleID: s.ID, Type: event.TypeTokensPurchased})
		if err != nil {
			t.Fatalf("events: %v", err)
		}
		if len(records) == 1 {
			r := records[0]
			if r.Account != buyer {
				t.Errorf("journal account = %s, want %s", r.Account, buyer)
			}
			if !r.Amount.Equal(receipt.TokenAmount) {
				t.Errorf("journal amount = %s, want %s", r.Amount, receipt.TokenAmount)
			}
			if !r.Payment.Equal(payment) {
				t.Errorf("journal payment = %s, want %s", r.Payment, payment)
			}
			if r.TokenID != tok.ID {
				t.Errorf("journal token = %s, want %s", r.TokenID, tok.ID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("purchase journal record not flushed, got %d records", len(records))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
