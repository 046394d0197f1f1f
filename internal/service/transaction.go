package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/pkg/metrics"
	"game-ledger-bot/internal/repository"
)

// Paging defaults for transaction listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
	MaxBatchSize     = 1000
	maxItemLength    = 200
	maxNotesLength   = 500
)

// TransactionPage is one page of a filtered transaction listing.
type TransactionPage struct {
	Transactions []*model.Transaction
	Page         int
	Limit        int
	Total        int
	Pages        int
}

// TransactionService records income and expenses.
type TransactionService struct {
	txs      TransactionStore
	sessions SessionStore
	runner   TxRunner
}

// NewTransactionService creates a new TransactionService instance.
func NewTransactionService(txs TransactionStore, sessions SessionStore, runner TxRunner) *TransactionService {
	return &TransactionService{txs: txs, sessions: sessions, runner: runner}
}

// validateTransaction checks the fields a stored transaction must satisfy.
func validateTransaction(tx *model.Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, tx.Type)
	}
	if !tx.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, tx.Category)
	}
	if tx.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return validateTransactionText(tx.Item, tx.Notes)
}

// validateTransactionText checks the free-text fields against their column sizes.
func validateTransactionText(item, notes *string) error {
	if item != nil && len([]rune(*item)) > maxItemLength {
		return fmt.Errorf("%w: item longer than %d characters", ErrInvalidInput, maxItemLength)
	}
	if notes != nil && len([]rune(*notes)) > maxNotesLength {
		return fmt.Errorf("%w: notes longer than %d characters", ErrInvalidInput, maxNotesLength)
	}
	return nil
}

// checkSession verifies that sessionID, when set, belongs to userID.
func (s *TransactionService) checkSession(ctx context.Context, userID int64, sessionID *int64) error {
	if sessionID == nil {
		return nil
	}
	_, err := s.sessions.GetByID(ctx, userID, *sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrLinkedSession, *sessionID)
	}
	return err
}

// Create records one transaction for userID.
func (s *TransactionService) Create(ctx context.Context, userID int64, tx *model.Transaction) (*model.Transaction, error) {
	tx.UserID = userID
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}
	if err := s.checkSession(ctx, userID, tx.SessionID); err != nil {
		return nil, err
	}

	created, err := s.txs.Create(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	metrics.TransactionsRecorded.WithLabelValues(string(created.Type)).Inc()
	log.Debug().
		Int64("user_id", userID).
		Int64("transaction_id", created.ID).
		Str("type", string(created.Type)).
		Str("category", string(created.Category)).
		Float64("amount", created.Amount).
		Msg("Transaction recorded")

	return created, nil
}

// CreateBatch records all txs for userID atomically.
func (s *TransactionService) CreateBatch(ctx context.Context, userID int64, txs []*model.Transaction) ([]*model.Transaction, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	if len(txs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch larger than %d", ErrInvalidInput, MaxBatchSize)
	}

	checked := make(map[int64]bool)
	for i, tx := range txs {
		if tx == nil {
			return nil, fmt.Errorf("%w: transaction %d is empty", ErrInvalidInput, i+1)
		}
		tx.UserID = userID
		if err := validateTransaction(tx); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		if tx.SessionID != nil && !checked[*tx.SessionID] {
			if err := s.checkSession(ctx, userID, tx.SessionID); err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i+1, err)
			}
			checked[*tx.SessionID] = true
		}
	}

	var created []*model.Transaction
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.txs.CreateBatch(ctx, txs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record transactions: %w", err)
	}

	for _, tx := range created {
		metrics.TransactionsRecorded.WithLabelValues(string(tx.Type)).Inc()
	}
	log.Info().Int64("user_id", userID).Int("count", len(created)).Msg("Transaction batch recorded")
	return created, nil
}

// List returns one page of the user's transactions matching filter.
// page starts at 1; limit defaults to DefaultPageLimit.
func (s *TransactionService) List(ctx context.Context, userID int64, filter model.TransactionFilter, page, limit int) (*TransactionPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, filter.Type)
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, filter.Category)
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	result := &TransactionPage{Page: page, Limit: limit}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Transactions, err = s.txs.ListByUser(gctx, userID, filter)
		return err
	})
	g.Go(func() error {
		var err error
		result.Total, err = s.txs.CountByUser(gctx, userID, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	result.Pages = (result.Total + limit - 1) / limit
	return result, nil
}

// Recent returns the latest n transactions of userID.
func (s *TransactionService) Recent(ctx context.Context, userID int64, n int) ([]*model.Transaction, error) {
	return s.txs.ListByUser(ctx, userID, model.TransactionFilter{Limit: n})
}

// Update changes a transaction of userID.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, upd model.TransactionUpdate) (*model.Transaction, error) {
	if upd.Type != nil && !upd.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, *upd.Type)
	}
	if upd.Category != nil && !upd.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *upd.Category)
	}
	if upd.Amount != nil && *upd.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	if upd.Item != nil {
		trimmed := strings.TrimSpace(*upd.Item)
		upd.Item = &trimmed
	}
	if err := validateTransactionText(upd.Item, upd.Notes); err != nil {
		return nil, err
	}
	if err := s.checkSession(ctx, userID, upd.SessionID); err != nil {
		return nil, err
	}

	return s.txs.Update(ctx, userID, id, upd)
}

// Delete removes a transaction of userID.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	return s.txs.Delete(ctx, userID, id)
}
