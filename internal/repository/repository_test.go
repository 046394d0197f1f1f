// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a migrated PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func ptr[T any](v T) *T { return &v }

func seedUser(t *testing.T, pool *pgxpool.Pool, id int64) {
	t.Helper()
	_, _, err := NewUserRepository(pool).GetOrCreate(context.Background(), id, "player")
	require.NoError(t, err)
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, created, err := repo.GetOrCreate(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12345), user.TelegramID)
	assert.Equal(t, "testuser", user.Username)

	user, created, err = repo.GetOrCreate(ctx, 12345, "renamed")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "renamed", user.Username)

	// an empty name never wipes the stored one
	user, _, err = repo.GetOrCreate(ctx, 12345, "")
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Username)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.Exists(ctx, 12345)
	require.NoError(t, err)
	assert.True(t, exists)
}

// ============================================================================
// SessionRepository Tests
// ============================================================================

func TestSessionRepository_CreateAndSettle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	s, err := repo.Create(ctx, &model.Session{UserID: 1, MultiAccount: 2})
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, s.Status)
	assert.False(t, s.StartTime.IsZero())
	assert.Nil(t, s.EndTime)

	end := s.StartTime.Add(2 * time.Hour)
	s.EndTime = &end
	s.DurationHours = 2
	s.PointCardCost = 2.4

	saved, err := repo.SaveSettled(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnded, saved.Status)
	assert.Equal(t, 2.0, saved.DurationHours)
	assert.Equal(t, 2.4, saved.PointCardCost)
	require.NotNil(t, saved.EndTime)

	// a second settlement must not overwrite the first one
	s.DurationHours, s.PointCardCost = 9, 9
	_, err = repo.SaveSettled(ctx, s)
	assert.ErrorIs(t, err, ErrSessionNotActive)

	again, err := repo.GetByID(ctx, 1, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.4, again.PointCardCost)

	_, err = repo.SaveArchived(ctx, 1, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestSessionRepository_OwnershipAndFilters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)
	seedUser(t, pool, 2)

	repo := NewSessionRepository(pool)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.Session{UserID: 1, StartTime: base.AddDate(0, 0, i), MultiAccount: 1})
		require.NoError(t, err)
	}
	foreign, err := repo.Create(ctx, &model.Session{UserID: 2, StartTime: base, MultiAccount: 1})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, 1, foreign.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListByUser(ctx, 1, model.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartTime.After(all[1].StartTime), "newest first")

	start, end := base.AddDate(0, 0, 1), base.AddDate(0, 0, 2)
	ranged, err := repo.ListByUser(ctx, 1, model.SessionFilter{Range: &model.DateRange{Start: &start, End: &end}})
	require.NoError(t, err)
	assert.Len(t, ranged, 2, "bounds are inclusive")

	archived, err := repo.SaveArchived(ctx, 1, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionArchived, archived.Status)

	active, err := repo.ListByUser(ctx, 1, model.SessionFilter{Status: model.SessionActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	latest, err := repo.GetLatestActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, all[1].ID, latest.ID)

	assert.ErrorIs(t, repo.Delete(ctx, 1, foreign.ID), ErrNotFound)
}

func TestSessionRepository_DeleteKeepsTransactions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)

	sessions := NewSessionRepository(pool)
	txs := NewTransactionRepository(pool)
	ctx := context.Background()

	s, err := sessions.Create(ctx, &model.Session{UserID: 1, MultiAccount: 1})
	require.NoError(t, err)
	tx, err := txs.Create(ctx, &model.Transaction{
		UserID: 1, SessionID: &s.ID, Type: model.TxIncome, Category: model.CategoryShimen, Amount: 50000,
	})
	require.NoError(t, err)

	require.NoError(t, sessions.Delete(ctx, 1, s.ID))

	kept, err := txs.GetByID(ctx, 1, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.SessionID)
	assert.Equal(t, 50000.0, kept.Amount)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_ListFiltersAndPaging(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)

	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	batch := make([]*model.Transaction, 0, 10)
	for i := 0; i < 10; i++ {
		tx := &model.Transaction{
			UserID:    1,
			Type:      model.TxIncome,
			Category:  model.CategoryZhuagui,
			Amount:    float64(1000 * (i + 1)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if i%2 == 1 {
			tx.Type = model.TxExpense
			tx.Category = model.CategoryOther
		}
		batch = append(batch, tx)
	}
	created, err := repo.CreateBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, created, 10)
	assert.Equal(t, 1000.0, created[0].Amount)

	income, err := repo.ListByUser(ctx, 1, model.TransactionFilter{Type: model.TxIncome})
	require.NoError(t, err)
	assert.Len(t, income, 5)

	page, err := repo.ListByUser(ctx, 1, model.TransactionFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, 7000.0, page[0].Amount, "newest first, fourth row")

	end := base.Add(2 * time.Hour)
	n, err := repo.CountByUser(ctx, 1, model.TransactionFilter{Range: &model.DateRange{End: &end}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTransactionRepository_CreateBatchReportsFailure(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)

	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	err := NewTxManager(pool).RunInTx(ctx, func(ctx context.Context) error {
		_, err := repo.CreateBatch(ctx, []*model.Transaction{
			{UserID: 1, Type: model.TxIncome, Category: model.CategoryShimen, Amount: 10},
			{UserID: 1, Type: model.TxIncome, Category: model.CategoryShimen, Amount: 20, Item: ptr(strings.Repeat("x", 201))},
		})
		return err
	})
	assert.ErrorIs(t, err, ErrConstraint)

	// the connection is still usable after the failed batch
	created, err := repo.CreateBatch(ctx, []*model.Transaction{
		{UserID: 1, Type: model.TxExpense, Category: model.CategoryOther, Amount: 5},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	n, err := repo.CountByUser(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTransactionRepository_UpdateAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)
	seedUser(t, pool, 2)

	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	tx, err := repo.Create(ctx, &model.Transaction{UserID: 1, Type: model.TxIncome, Category: model.CategoryFuben, Amount: 1})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, 1, tx.ID, model.TransactionUpdate{Amount: ptr(250.0), Item: ptr("兽决")})
	require.NoError(t, err)
	assert.Equal(t, 250.0, updated.Amount)
	require.NotNil(t, updated.Item)
	assert.Equal(t, "兽决", *updated.Item)
	assert.Equal(t, model.CategoryFuben, updated.Category)

	_, err = repo.Update(ctx, 2, tx.ID, model.TransactionUpdate{Amount: ptr(1.0)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, 1, tx.ID, model.TransactionUpdate{SessionID: ptr(int64(424242))})
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = repo.Update(ctx, 1, tx.ID, model.TransactionUpdate{Item: ptr(strings.Repeat("x", 201))})
	assert.ErrorIs(t, err, ErrConstraint)

	assert.ErrorIs(t, repo.Delete(ctx, 2, tx.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, 1, tx.ID))
	_, err = repo.GetByID(ctx, 1, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)

	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	err := NewTxManager(pool).RunInTx(ctx, func(ctx context.Context) error {
		_, err := repo.Create(ctx, &model.Transaction{UserID: 1, Type: model.TxIncome, Category: model.CategoryShimen, Amount: 10})
		require.NoError(t, err)
		_, err = repo.Create(ctx, &model.Transaction{UserID: 1, Type: model.TxIncome, Category: model.CategoryShimen, Amount: -1})
		return err
	})
	assert.ErrorIs(t, err, ErrConstraint)

	n, err := repo.CountByUser(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ============================================================================
// AssetRepository Tests
// ============================================================================

func TestAssetRepository_CRUD(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedUser(t, pool, 1)

	repo := NewAssetRepository(pool)
	ctx := context.Background()

	pet, err := repo.Create(ctx, &model.Asset{UserID: 1, Name: "须弥", Type: model.AssetPet, Value: 1200})
	require.NoError(t, err)
	assert.Equal(t, 1, pet.Quantity)

	_, err = repo.Create(ctx, &model.Asset{UserID: 1, Name: "无级别", Type: model.AssetEquipment, Value: 300, Quantity: 2})
	require.NoError(t, err)

	all, err := repo.ListByUser(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pets, err := repo.ListByUser(ctx, 1, model.AssetPet)
	require.NoError(t, err)
	require.Len(t, pets, 1)
	assert.Equal(t, "须弥", pets[0].Name)

	updated, err := repo.Update(ctx, 1, pet.ID, model.AssetUpdate{Quantity: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "3600", updated.TotalValue().String())

	_, err = repo.Update(ctx, 1, pet.ID, model.AssetUpdate{Quantity: ptr(0)})
	assert.ErrorIs(t, err, ErrConstraint)

	require.NoError(t, repo.Delete(ctx, 1, pet.ID))
	assert.ErrorIs(t, repo.Delete(ctx, 1, pet.ID), ErrNotFound)
}
