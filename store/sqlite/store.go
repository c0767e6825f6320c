package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	tokensale "github.com/xraph/tokensale"
	"github.com/xraph/tokensale/event"
	"github.com/xraph/tokensale/id"
	"github.com/xraph/tokensale/kyc"
	"github.com/xraph/tokensale/sale"
	tokenstore "github.com/xraph/tokensale/store"
	"github.com/xraph/tokensale/token"
	"github.com/xraph/tokensale/types"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tokensale/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tokensale/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	m := new(tokenModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", tokenID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokensale.ErrTokenNotFound
		}
		return nil, err
	}
	return fromTokenModel(m)
}

func (s *Store) UpdateToken(ctx context.Context, t *token.Token) error {
	m := toTokenModel(t)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokensale.ErrTokenNotFound
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, tokenID id.TokenID, account id.AccountID) (types.Amount, error) {
	m := new(balanceModel)
	err := s.sdb.NewSelect(m).
		Where("token_id = ?", tokenID.String()).
		Where("account = ?", account.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.ZeroAmount(), nil
		}
		return types.ZeroAmount(), err
	}
	return types.ParseAmount(m.Balance)
}

func (s *Store) GetAllowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID) (types.Amount, error) {
	m := new(allowanceModel)
	err := s.sdb.NewSelect(m).
		Where("token_id = ?", tokenID.String()).
		Where("owner = ?", owner.String()).
		Where("spender = ?", spender.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.ZeroAmount(), nil
		}
		return types.ZeroAmount(), err
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) SetAllowance(ctx context.Context, tokenID id.TokenID, owner, spender id.AccountID, amount types.Amount) error {
	m := &allowanceModel{
		TokenID: tokenID.String(),
		Owner:   owner.String(),
		Spender: spender.String(),
		Amount:  amount.String(),
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(token_id, owner, spender) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Exec(ctx)
	return err
}

func (s *Store) ApplyMint(ctx context.Context, tokenID id.TokenID, account id.AccountID, newBalance, newTotalMinted types.Amount) error {
	if err := s.setBalance(ctx, tokenID, account, newBalance); err != nil {
		return err
	}

	res, err := s.sdb.NewUpdate((*tokenModel)(nil)).
		Set("total_minted = ?", newTotalMinted.String()).
		Set("updated_at = ?", now()).
		Where("id = ?", tokenID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
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

func (s *Store) setBalance(ctx context.Context, tokenID id.TokenID, account id.AccountID, balance types.Amount) error {
	m := &balanceModel{
		TokenID: tokenID.String(),
		Account: account.String(),
		Balance: balance.String(),
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(token_id, account) DO UPDATE").
		Set("balance = EXCLUDED.balance").
		Exec(ctx)
	return err
}

// ==================== Compliance Store ====================

func (s *Store) CreateGate(ctx context.Context, g *kyc.Gate) error {
	m := toGateModel(g)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetGate(ctx context.Context, gateID id.GateID) (*kyc.Gate, error) {
	m := new(gateModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", gateID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokensale.ErrGateNotFound
		}
		return nil, err
	}
	return fromGateModel(m)
}

func (s *Store) GetApproval(ctx context.Context, gateID id.GateID, account id.AccountID) (bool, error) {
	m := new(approvalModel)
	err := s.sdb.NewSelect(m).
		Where("gate_id = ?", gateID.String()).
		Where("account = ?", account.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return m.Approved, nil
}

func (s *Store) SetApproval(ctx context.Context, gateID id.GateID, account id.AccountID, approved bool) error {
	m := &approvalModel{
		GateID:   gateID.String(),
		Account:  account.String(),
		Approved: approved,
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(gate_id, account) DO UPDATE").
		Set("approved = EXCLUDED.approved").
		Exec(ctx)
	return err
}

// ==================== Sale Store ====================

func (s *Store) CreateSale(ctx context.Context, sl *sale.Sale) error {
	m := toSaleModel(sl)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error) {
	m := new(saleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", saleID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokensale.ErrSaleNotFound
		}
		return nil, err
	}
	return fromSaleModel(m)
}

func (s *Store) UpdateSale(ctx context.Context, sl *sale.Sale) error {
	m := toSaleModel(sl)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokensale.ErrSaleNotFound
	}
	return nil
}

// ==================== Journal Store ====================

func (s *Store) AppendEvents(ctx context.Context, records []*event.Record) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]eventModel, len(records))
	for i, r := range records {
		models[i] = *toEventModel(r)
	}
	_, err := s.sdb.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	var models []eventModel
	q := s.sdb.NewSelect(&models)

	if !opts.SaleID.IsNil() {
		q = q.Where("sale_id = ?", opts.SaleID.String())
	}
	if !opts.TokenID.IsNil() {
		q = q.Where("token_id = ?", opts.TokenID.String())
	}
	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if !opts.Start.IsZero() {
		q = q.Where("occurred_at >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("occurred_at <= ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewDelete((*eventModel)(nil)).
		Where("occurred_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
