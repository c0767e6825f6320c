package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/sale"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

// ==================== Token models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:tokensale_tokens"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	Name        string            `grove:"name"         bson:"name"`
	Symbol      string            `grove:"symbol"       bson:"symbol"`
	Decimals    uint8             `grove:"decimals"     bson:"decimals"`
	SupplyUnits uint64            `grove:"supply_units" bson:"supply_units"`
	MaxSupply   string            `grove:"max_supply"   bson:"max_supply"`
	TotalMinted string            `grove:"total_minted" bson:"total_minted"`
	Owner       string            `grove:"owner"        bson:"owner"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toTokenModel(t *token.Token) *tokenModel {
	return &tokenModel{
		ID:          t.ID.String(),
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    t.Decimals,
		SupplyUnits: t.SupplyUnits,
		MaxSupply:   t.MaxSupply.String(),
		TotalMinted: t.TotalMinted.String(),
		Owner:       t.Owner.String(),
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) (*token.Token, error) {
	tokenID, err := id.ParseTokenID(m.ID)
	if err != nil {
		return nil, err
	}
	owner, err := id.ParseAccountID(m.Owner)
	if err != nil {
		return nil, err
	}
	maxSupply, err := types.ParseAmount(m.MaxSupply)
	if err != nil {
		return nil, err
	}
	totalMinted, err := types.ParseAmount(m.TotalMinted)
	if err != nil {
		return nil, err
	}

	return &token.Token{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          tokenID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		Decimals:    m.Decimals,
		SupplyUnits: m.SupplyUnits,
		MaxSupply:   maxSupply,
		TotalMinted: totalMinted,
		Owner:       owner,
		Metadata:    m.Metadata,
	}, nil
}

// ==================== Balance / Allowance models ====================

// Balances and allowances use a composite document key so a single
// upsert addresses one holding.

type balanceModel struct {
	grove.BaseModel `grove:"table:tokensale_balances"`

	ID      string `grove:"id,pk"    bson:"_id"` // tokenID:account
	TokenID string `grove:"token_id" bson:"token_id"`
	Account string `grove:"account"  bson:"account"`
	Balance string `grove:"balance"  bson:"balance"`
}

type allowanceModel struct {
	grove.BaseModel `grove:"table:tokensale_allowances"`

	ID      string `grove:"id,pk"    bson:"_id"` // tokenID:owner:spender
	TokenID string `grove:"token_id" bson:"token_id"`
	Owner   string `grove:"owner"    bson:"owner"`
	Spender string `grove:"spender"  bson:"spender"`
	Amount  string `grove:"amount"   bson:"amount"`
}

// ==================== Gate models ====================

type gateModel struct {
	grove.BaseModel `grove:"table:tokensale_gates"`

	ID        string            `grove:"id,pk"      bson:"_id"`
	Validator string            `grove:"validator"  bson:"validator"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
}

func toGateModel(g *kyc.Gate) *gateModel {
	return &gateModel{
		ID:        g.ID.String(),
		Validator: g.Validator.String(),
		Metadata:  g.Metadata,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromGateModel(m *gateModel) (*kyc.Gate, error) {
	gateID, err := id.ParseGateID(m.ID)
	if err != nil {
		return nil, err
	}
	validator, err := id.ParseAccountID(m.Validator)
	if err != nil {
		return nil, err
	}

	return &kyc.Gate{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        gateID,
		Validator: validator,
		Metadata:  m.Metadata,
	}, nil
}

type approvalModel struct {
	grove.BaseModel `grove:"table:tokensale_approvals"`

	ID       string `grove:"id,pk"    bson:"_id"` // gateID:account
	GateID   string `grove:"gate_id"  bson:"gate_id"`
	Account  string `grove:"account"  bson:"account"`
	Approved bool   `grove:"approved" bson:"approved"`
}

// ==================== Sale models ====================

type saleModel struct {
	grove.BaseModel `grove:"table:tokensale_sales"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	TokenID     string            `grove:"token_id"     bson:"token_id"`
	GateID      string            `grove:"gate_id"      bson:"gate_id,omitempty"`
	Owner       string            `grove:"owner"        bson:"owner"`
	TokenSource string            `grove:"token_source" bson:"token_source"`
	Recipient   string            `grove:"recipient"    bson:"recipient"`
	Rate        string            `grove:"rate"         bson:"rate"`
	Status      string            `grove:"status"       bson:"status"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toSaleModel(s *sale.Sale) *saleModel {
	return &saleModel{
		ID:          s.ID.String(),
		TokenID:     s.TokenID.String(),
		GateID:      s.GateID.String(),
		Owner:       s.Owner.String(),
		TokenSource: s.TokenSource.String(),
		Recipient:   s.Recipient.String(),
		Rate:        s.Rate.String(),
		Status:      string(s.Status),
		Metadata:    s.Metadata,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromSaleModel(m *saleModel) (*sale.Sale, error) {
	saleID, err := id.ParseSaleID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}

	var gateID id.GateID
	if m.GateID != "" {
		gateID, err = id.ParseGateID(m.GateID)
		if err != nil {
			return nil, err
		}
	}

	owner, err := id.ParseAccountID(m.Owner)
	if err != nil {
		return nil, err
	}
	source, err := id.ParseAccountID(m.TokenSource)
	if err != nil {
		return nil, err
	}
	recipient, err := id.ParseAccountID(m.Recipient)
	if err != nil {
		return nil, err
	}
	rate, err := types.ParseAmount(m.Rate)
	if err != nil {
		return nil, err
	}

	return &sale.Sale{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          saleID,
		TokenID:     tokenID,
		GateID:      gateID,
		Owner:       owner,
		TokenSource: source,
		Recipient:   recipient,
		Rate:        rate,
		Status:      sale.Status(m.Status),
		Metadata:    m.Metadata,
	}, nil
}

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:tokensale_events"`

	ID         string            `grove:"id,pk"       bson:"_id"`
	Type       string            `grove:"type"        bson:"type"`
	SaleID     string            `grove:"sale_id"     bson:"sale_id,omitempty"`
	TokenID    string            `grove:"token_id"    bson:"token_id,omitempty"`
	GateID     string            `grove:"gate_id"     bson:"gate_id,omitempty"`
	Account    string            `grove:"account"     bson:"account,omitempty"`
	Amount     string            `grove:"amount"      bson:"amount"`
	Payment    string            `grove:"payment"     bson:"payment"`
	Metadata   map[string]string `grove:"metadata"    bson:"metadata,omitempty"`
	OccurredAt time.Time         `grove:"occurred_at" bson:"occurred_at"`
}

func toEventModel(r *event.Record) *eventModel {
	return &eventModel{
		ID:         r.ID.String(),
		Type:       string(r.Type),
		SaleID:     r.SaleID.String(),
		TokenID:    r.TokenID.String(),
		GateID:     r.GateID.String(),
		Account:    r.Account.String(),
		Amount:     r.Amount.String(),
		Payment:    r.Payment.String(),
		Metadata:   r.Metadata,
		OccurredAt: r.OccurredAt,
	}
}

func fromEventModel(m *eventModel) (*event.Record, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}

	r := &event.Record{
		ID:         eventID,
		Type:       event.Type(m.Type),
		Metadata:   m.Metadata,
		OccurredAt: m.OccurredAt,
	}

	if m.SaleID != "" {
		if r.SaleID, err = id.ParseSaleID(m.SaleID); err != nil {
			return nil, err
		}
	}
	if m.TokenID != "" {
		if r.TokenID, err = id.ParseTokenID(m.TokenID); err != nil {
			return nil, err
		}
	}
	if m.GateID != "" {
		if r.GateID, err = id.ParseGateID(m.GateID); err != nil {
			return nil, err
		}
	}
	if m.Account != "" {
		// The account slot may carry any participant, including a sale
		// acting as allowance spender.
		if r.Account, err = id.ParseAny(m.Account); err != nil {
			return nil, err
		}
	}
	if r.Amount, err = types.ParseAmount(m.Amount); err != nil {
		return nil, err
	}
	if r.Payment, err = types.ParseAmount(m.Payment); err != nil {
		return nil, err
	}

	return r, nil
}
