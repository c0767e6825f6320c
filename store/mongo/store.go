package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	tokensale "github.com/xraph/tokensale"
	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/sale"
	tokenstore "github.com/xraph/tokensale/store"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

// Collection name constants.
const (
	colTokens     = "tokensale_tokens"
	colBalances   = "tokensale_balances"
	colAllowances = "tokensale_allowances"
	colGates      = "tokensale_gates"
	colApprovals  = "tokensale_approvals"
	colSales      = "tokensale_sales"
	colEvents     = "tokensale_events"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tokensale collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tokensale/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Token Store ====================

func (s *Store) CreateToken(ctx context.Context, t *token.Token) error {
	m := toTokenModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: create token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokensale.ErrTokenNotFound
		}
		return nil, fmt.Errorf("tokensale/mongo: get token: %w", err)
	}
	return fromTokenModel(&m)
}

func (s *Store) UpdateToken(ctx context.Context, t *token.Token) error {
	m := toTokenModel(t)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: update token: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tokensale.ErrTokenNotFound
	}
	return nil
}

// ==================== Balance / Allowance Store ====================

func (s *Store) GetBalance(ctx context.Context, tokenID id.TokenID, account id.AccountID) (types.Amount, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": balanceKey(tokenID, account)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.ZeroAmount(), nil
		}
		return types.ZeroAmount(), fmt.Errorf("tokensale/mongo: get balance: %w", err)
	}
	return types.ParseAmount(m.Balance)
}

func (s *Store) setBalance(ctx context.Context, tokenID id.TokenID, account id.AccountID, balance types.Amount) error {
	key := balanceKey(tokenID, account)
	m := &balanceModel{
		ID:      key,
		TokenID: tokenID.String(),
		Account: account.String(),
		Balance: balance.String(),
	}

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":      m.ID,
			"token_id": m.TokenID,
			"account":  m.Account,
			"balance":  m.Balance,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: set balance: %w", err)
	}
	return nil
}

func (s *Store) GetAllowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID) (types.Amount, error) {
	var m allowanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": allowanceKey(tokenID, owner, spender)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.ZeroAmount(), nil
		}
		return types.ZeroAmount(), fmt.Errorf("tokensale/mongo: get allowance: %w", err)
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) SetAllowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID, amount types.Amount) error {
	key := allowanceKey(tokenID, owner, spender)
	m := &allowanceModel{
		ID:      key,
		TokenID: tokenID.String(),
		Owner:   owner.String(),
		Spender: spender.String(),
		Amount:  amount.String(),
	}

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":      m.ID,
			"token_id": m.TokenID,
			"owner":    m.Owner,
			"spender":  m.Spender,
			"amount":   m.Amount,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: set allowance: %w", err)
	}
	return nil
}

func (s *Store) ApplyMint(ctx context.Context, tokenID id.TokenID, account id.AccountID, newBalance, newTotalMinted types.Amount) error {
	if err := s.setBalance(ctx, tokenID, account, newBalance); err != nil {
		return err
	}

	res, err := s.mdb.NewUpdate((*tokenModel)(nil)).
		Filter(bson.M{"_id": tokenID.String()}).
		Set("total_minted", newTotalMinted.String()).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: apply mint: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tokensale.ErrTokenNotFound
	}
	return nil
}

func (s *Store) ApplyTransfer(ctx context.Context, tokenID id.TokenID, from, to, spender id.AccountID, newFromBalance, newToBalance, newAllowance types.Amount) error {
	if err := s.setBalance(ctx, tokenID, from, newFromBalance); err != nil {
		return err
	}
	if err := s.setBalance(ctx, tokenID, to, newToBalance); err != nil {
		return err
	}
	return s.SetAllowance(ctx, tokenID, from, spender, newAllowance)
}

// ==================== Gate Store ====================

func (s *Store) CreateGate(ctx context.Context, g *kyc.Gate) error {
	m := toGateModel(g)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: create gate: %w", err)
	}
	return nil
}

func (s *Store) GetGate(ctx context.Context, gateID id.GateID) (*kyc.Gate, error) {
	var m gateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": gateID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokensale.ErrGateNotFound
		}
		return nil, fmt.Errorf("tokensale/mongo: get gate: %w", err)
	}
	return fromGateModel(&m)
}

func (s *Store) GetApproval(ctx context.Context, gateID id.GateID, account id.AccountID) (bool, error) {
	var m approvalModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": approvalKey(gateID, account)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("tokensale/mongo: get approval: %w", err)
	}
	return m.Approved, nil
}

func (s *Store) SetApproval(ctx context.Context, gateID id.GateID, account id.AccountID, approved bool) error {
	key := approvalKey(gateID, account)
	m := &approvalModel{
		ID:       key,
		GateID:   gateID.String(),
		Account:  account.String(),
		Approved: approved,
	}

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":      m.ID,
			"gate_id":  m.GateID,
			"account":  m.Account,
			"approved": m.Approved,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: set approval: %w", err)
	}
	return nil
}

// ==================== Sale Store ====================

func (s *Store) CreateSale(ctx context.Context, sl *sale.Sale) error {
	m := toSaleModel(sl)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: create sale: %w", err)
	}
	return nil
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error) {
	var m saleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": saleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokensale.ErrSaleNotFound
		}
		return nil, fmt.Errorf("tokensale/mongo: get sale: %w", err)
	}
	return fromSaleModel(&m)
}

func (s *Store) UpdateSale(ctx context.Context, sl *sale.Sale) error {
	m := toSaleModel(sl)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokensale/mongo: update sale: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tokensale.ErrSaleNotFound
	}
	return nil
}

// ==================== Event Store ====================

func (s *Store) AppendEvents(ctx context.Context, records []*event.Record) error {
	for _, r := range records {
		m := toEventModel(r)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("tokensale/mongo: append events: %w", err)
		}
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	var models []eventModel

	filter := bson.M{}
	if !opts.SaleID.IsNil() {
		filter["sale_id"] = opts.SaleID.String()
	}
	if !opts.TokenID.IsNil() {
		filter["token_id"] = opts.TokenID.String()
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if !opts.Start.IsZero() {
		if _, ok := filter["occurred_at"]; !ok {
			filter["occurred_at"] = bson.M{}
		}
		if ts, ok := filter["occurred_at"].(bson.M); ok {
			ts["$gte"] = opts.Start
		}
	}
	if !opts.End.IsZero() {
		if _, ok := filter["occurred_at"]; !ok {
			filter["occurred_at"] = bson.M{}
		}
		if ts, ok := filter["occurred_at"].(bson.M); ok {
			ts["$lte"] = opts.End
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokensale/mongo: list events: %w", err)
	}

	result := make([]*event.Record, len(models))
	for i := range models {
		r, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*eventModel)(nil)).
		Filter(bson.M{"occurred_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("tokensale/mongo: purge events: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func balanceKey(tokenID id.TokenID, account id.AccountID) string {
	return tokenID.String() + ":" + account.String()
}

func allowanceKey(tokenID id.TokenID, owner, spender id.AccountID) string {
	return tokenID.String() + ":" + owner.String() + ":" + spender.String()
}

func approvalKey(gateID id.GateID, account id.AccountID) string {
	return gateID.String() + ":" + account.String()
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTokens: {
			{
				Keys:    bson.D{{Key: "symbol", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "owner", Value: 1}},
			},
		},
		colBalances: {
			{
				Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "account", Value: 1}},
			},
		},
		colAllowances: {
			{
				Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "owner", Value: 1}},
			},
		},
		colGates: {
			{
				Keys: bson.D{{Key: "validator", Value: 1}},
			},
		},
		colApprovals: {
			{
				Keys: bson.D{{Key: "gate_id", Value: 1}, {Key: "account", Value: 1}},
			},
		},
		colSales: {
			{
				Keys: bson.D{{Key: "token_id", Value: 1}},
			},
			{
				Keys:    bson.D{{Key: "gate_id", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		colEvents: {
			{
				Keys: bson.D{{Key: "sale_id", Value: 1}, {Key: "occurred_at", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "type", Value: 1}, {Key: "occurred_at", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "occurred_at", Value: 1}},
			},
		},
	}
}
