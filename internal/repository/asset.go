package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"game-ledger-bot/internal/model"
)

var assetColumns = []string{
	"id", "user_id", "name", "type", "value", "quantity", "description", "created_at", "updated_at",
}

func scanAsset(row scanner) (*model.Asset, error) {
	var a model.Asset
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Type,
		&a.Value,
		&a.Quantity,
		&a.Description,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AssetRepository handles owned asset persistence.
type AssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository creates a new AssetRepository instance.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

// Create inserts an asset. A quantity below 1 is stored as 1.
func (r *AssetRepository) Create(ctx context.Context, a *model.Asset) (*model.Asset, error) {
	const query = `
		INSERT INTO assets (user_id, name, type, value, quantity, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, user_id, name, type, value, quantity, description, created_at, updated_at
	`

	created, err := scanAsset(querier(ctx, r.pool).QueryRow(ctx, query,
		a.UserID, a.Name, a.Type, a.Value, a.EffectiveQuantity(), a.Description,
	))
	if err != nil {
		return nil, mapError(err, "create asset")
	}
	return created, nil
}

// GetByID retrieves an asset owned by userID.
func (r *AssetRepository) GetByID(ctx context.Context, userID, id int64) (*model.Asset, error) {
	query, args, err := psql.Select(assetColumns...).
		From("assets").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build asset query: %w", err)
	}

	a, err := scanAsset(querier(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get asset")
	}
	return a, nil
}

// ListByUser returns the assets of userID, newest first.
// An empty assetType lists every type.
func (r *AssetRepository) ListByUser(ctx context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error) {
	builder := psql.Select(assetColumns...).
		From("assets").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if assetType != "" {
		builder = builder.Where(sq.Eq{"type": assetType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build asset query: %w", err)
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// Update changes the non-nil fields of upd on an asset owned by userID.
func (r *AssetRepository) Update(ctx context.Context, userID, id int64, upd model.AssetUpdate) (*model.Asset, error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, userID, id)
	}

	builder := psql.Update("assets").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + joinColumns(assetColumns))
	if upd.Name != nil {
		builder = builder.Set("name", *upd.Name)
	}
	if upd.Type != nil {
		builder = builder.Set("type", *upd.Type)
	}
	if upd.Value != nil {
		builder = builder.Set("value", *upd.Value)
	}
	if upd.Quantity != nil {
		builder = builder.Set("quantity", *upd.Quantity)
	}
	if upd.Description != nil {
		builder = builder.Set("description", *upd.Description)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build asset update: %w", err)
	}

	a, err := scanAsset(querier(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "update asset")
	}
	return a, nil
}

// Delete removes an asset owned by userID.
func (r *AssetRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM assets WHERE id = $1 AND user_id = $2`

	result, err := querier(ctx, r.pool).Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
