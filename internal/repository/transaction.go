package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"game-ledger-bot/internal/model"
)

var transactionColumns = []string{
	"id", "user_id", "session_id", "type", "category", "amount",
	"item", "notes", "created_at", "updated_at",
}

const insertTransactionQuery = `
	INSERT INTO transactions (user_id, session_id, type, category, amount, item, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
	RETURNING id, user_id, session_id, type, category, amount, item, notes, created_at, updated_at
`

func scanTransaction(row scanner) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.SessionID,
		&tx.Type,
		&tx.Category,
		&tx.Amount,
		&tx.Item,
		&tx.Notes,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func insertTransactionArgs(tx *model.Transaction) []any {
	return []any{
		tx.UserID, tx.SessionID, tx.Type, tx.Category, tx.Amount,
		tx.Item, tx.Notes, nullTime(tx.CreatedAt),
	}
}

// TransactionRepository handles income and expense persistence.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts a transaction. A zero CreatedAt means now.
func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	created, err := scanTransaction(querier(ctx, r.pool).QueryRow(ctx, insertTransactionQuery, insertTransactionArgs(tx)...))
	if err != nil {
		return nil, mapError(err, "create transaction")
	}
	return created, nil
}

// CreateBatch inserts all transactions in one round trip, in order.
// Callers wanting all-or-nothing run it inside TxManager.RunInTx.
func (r *TransactionRepository) CreateBatch(ctx context.Context, txs []*model.Transaction) ([]*model.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(insertTransactionQuery, insertTransactionArgs(tx)...)
	}

	results := querier(ctx, r.pool).SendBatch(ctx, batch)

	created := make([]*model.Transaction, 0, len(txs))
	for i := range txs {
		tx, err := scanTransaction(results.QueryRow())
		if err != nil {
			_ = results.Close()
			return nil, mapError(err, fmt.Sprintf("create transaction %d of batch", i+1))
		}
		created = append(created, tx)
	}

	// Close reports errors the batch raised after the last row was read.
	if err := results.Close(); err != nil {
		return nil, mapError(err, "create transaction batch")
	}
	return created, nil
}

// GetByID retrieves a transaction owned by userID.
func (r *TransactionRepository) GetByID(ctx context.Context, userID, id int64) (*model.Transaction, error) {
	query, args, err := psql.Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction query: %w", err)
	}

	tx, err := scanTransaction(querier(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get transaction")
	}
	return tx, nil
}

func applyTransactionFilter(b sq.SelectBuilder, userID int64, f model.TransactionFilter) sq.SelectBuilder {
	b = b.Where(sq.Eq{"user_id": userID})
	if f.Type != "" {
		b = b.Where(sq.Eq{"type": f.Type})
	}
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.SessionID != nil {
		b = b.Where(sq.Eq{"session_id": *f.SessionID})
	}
	return whereRange(b, "created_at", f.Range)
}

// ListByUser returns the transactions of userID, newest first.
// Range bounds apply to created_at and are inclusive.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, filter model.TransactionFilter) ([]*model.Transaction, error) {
	builder := applyTransactionFilter(psql.Select(transactionColumns...).From("transactions"), userID, filter).
		OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction query: %w", err)
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountByUser returns how many transactions match filter, ignoring its paging.
func (r *TransactionRepository) CountByUser(ctx context.Context, userID int64, filter model.TransactionFilter) (int, error) {
	query, args, err := applyTransactionFilter(psql.Select("COUNT(*)").From("transactions"), userID, filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build transaction count: %w", err)
	}

	var n int
	if err := querier(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// Update changes the non-nil fields of upd on a transaction owned by userID.
func (r *TransactionRepository) Update(ctx context.Context, userID, id int64, upd model.TransactionUpdate) (*model.Transaction, error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, userID, id)
	}

	builder := psql.Update("transactions").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + joinColumns(transactionColumns))
	if upd.Type != nil {
		builder = builder.Set("type", *upd.Type)
	}
	if upd.Category != nil {
		builder = builder.Set("category", *upd.Category)
	}
	if upd.Amount != nil {
		builder = builder.Set("amount", *upd.Amount)
	}
	if upd.Item != nil {
		builder = builder.Set("item", *upd.Item)
	}
	if upd.Notes != nil {
		builder = builder.Set("notes", *upd.Notes)
	}
	if upd.SessionID != nil {
		builder = builder.Set("session_id", *upd.SessionID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction update: %w", err)
	}

	tx, err := scanTransaction(querier(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "update transaction")
	}
	return tx, nil
}

// Delete removes a transaction owned by userID.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`

	result, err := querier(ctx, r.pool).Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
