package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-ledger-bot/internal/model"
)

func TestImportService_RelinksSessions(t *testing.T) {
	f := newFixture()
	svc := NewImportService(f.sessions, f.txs, f.assets)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	result, err := svc.Import(ctx, 1, ImportData{
		Sessions: []ImportSession{
			{ClientID: "local-1", Session: model.Session{ID: 900, UserID: 5, StartTime: start, EndTime: &end, MultiAccount: 2, Status: model.SessionEnded}},
			{ClientID: "local-2", Session: model.Session{StartTime: start, MultiAccount: 1, Status: model.SessionArchived}},
		},
		Transactions: []ImportTransaction{
			{ClientSessionID: "local-1", Transaction: model.Transaction{Type: model.TxIncome, Category: model.CategoryZhuagui, Amount: 30000, CreatedAt: end}},
			{ClientSessionID: "gone", Transaction: model.Transaction{Type: model.TxExpense, Category: model.CategoryOther, Amount: 10}},
		},
		Assets: []model.Asset{{Name: "宝石", Type: model.AssetOther, Value: 8}},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(result.ID)
	assert.NoError(t, err)
	assert.Equal(t, ImportCounter{Success: 2}, result.Sessions)
	assert.Equal(t, ImportCounter{Success: 2}, result.Transactions)
	assert.Equal(t, ImportCounter{Success: 1}, result.Assets)
	assert.Equal(t, 5, result.TotalMigrated())
	assert.Zero(t, result.TotalFailed())

	sessions, err := f.sessions.ListByUser(ctx, 1, model.SessionFilter{Status: model.SessionEnded})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	ended := sessions[0]
	assert.NotEqual(t, int64(900), ended.ID)
	// figures recomputed from the stored times
	assert.Equal(t, 1.5, ended.DurationHours)
	assert.Equal(t, 1.8, ended.PointCardCost)

	linked, err := f.txs.ListByUser(ctx, 1, model.TransactionFilter{SessionID: &ended.ID})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, model.CategoryZhuagui, linked[0].Category)

	orphans, err := f.txs.ListByUser(ctx, 1, model.TransactionFilter{Type: model.TxExpense})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Nil(t, orphans[0].SessionID)
}

func TestImportService_KeepsStoredFigures(t *testing.T) {
	f := newFixture()
	svc := NewImportService(f.sessions, f.txs, f.assets)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	_, err := svc.Import(ctx, 1, ImportData{Sessions: []ImportSession{
		{Session: model.Session{StartTime: start, EndTime: &end, MultiAccount: 1, Status: model.SessionEnded, DurationHours: 1, PointCardCost: 0.75}},
	}})
	require.NoError(t, err)

	sessions, err := f.sessions.ListByUser(ctx, 1, model.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 0.75, sessions[0].PointCardCost)
}

func TestImportService_CountsFailures(t *testing.T) {
	f := newFixture()
	svc := NewImportService(f.sessions, f.txs, f.assets)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	result, err := svc.Import(ctx, 1, ImportData{
		Sessions: []ImportSession{
			{Session: model.Session{MultiAccount: 1}},
			{Session: model.Session{StartTime: start, MultiAccount: 12}},
			{Session: model.Session{StartTime: start, EndTime: &before, Status: model.SessionEnded}},
			{Session: model.Session{StartTime: start, Status: "paused"}},
			{Session: model.Session{StartTime: start}},
		},
		Transactions: []ImportTransaction{
			{Transaction: model.Transaction{Type: model.TxIncome, Category: model.CategoryShimen, Amount: -1}},
			{Transaction: model.Transaction{Type: model.TxIncome, Category: "钓鱼", Amount: 1}},
			{Transaction: model.Transaction{Type: model.TxIncome, Category: model.CategoryShimen, Amount: 1}},
		},
		Assets: []model.Asset{
			{Name: " ", Type: model.AssetPet},
			{Name: "召唤兽", Type: model.AssetPet, Value: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ImportCounter{Success: 1, Failed: 4}, result.Sessions)
	assert.Equal(t, ImportCounter{Success: 1, Failed: 2}, result.Transactions)
	assert.Equal(t, ImportCounter{Success: 1, Failed: 1}, result.Assets)
	assert.Equal(t, 3, result.TotalMigrated())
	assert.Equal(t, 7, result.TotalFailed())

	sessions, err := f.sessions.ListByUser(ctx, 1, model.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, model.SessionActive, sessions[0].Status)
	assert.Equal(t, 1, sessions[0].MultiAccount)
}

func TestImportService_Cancelled(t *testing.T) {
	f := newFixture()
	svc := NewImportService(f.sessions, f.txs, f.assets)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, 1, ImportData{Sessions: []ImportSession{{Session: model.Session{StartTime: time.Now()}}}})
	assert.ErrorIs(t, err, context.Canceled)
}
