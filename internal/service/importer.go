package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"game-ledger-bot/internal/ledger"
	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/pkg/metrics"
)

// importWorkers bounds concurrent inserts per collection.
const importWorkers = 4

// ImportSession is a session exported by a client, with the client's own ID.
type ImportSession struct {
	ClientID string
	Session  model.Session
}

// ImportTransaction is a transaction exported by a client. ClientSessionID
// refers to an ImportSession.ClientID of the same import.
type ImportTransaction struct {
	ClientSessionID string
	Transaction     model.Transaction
}

// ImportData is everything one import carries.
type ImportData struct {
	Sessions     []ImportSession
	Transactions []ImportTransaction
	Assets       []model.Asset
}

// ImportCounter tallies one collection.
type ImportCounter struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// ImportResult tallies a whole import.
type ImportResult struct {
	ID           string        `json:"id"`
	Sessions     ImportCounter `json:"sessions"`
	Transactions ImportCounter `json:"transactions"`
	Assets       ImportCounter `json:"assets"`
}

// TotalMigrated returns the number of stored records.
func (r *ImportResult) TotalMigrated() int {
	return r.Sessions.Success + r.Transactions.Success + r.Assets.Success
}

// TotalFailed returns the number of rejected records.
func (r *ImportResult) TotalFailed() int {
	return r.Sessions.Failed + r.Transactions.Failed + r.Assets.Failed
}

// ImportService bulk-loads client data into a user's ledger.
type ImportService struct {
	sessions SessionStore
	txs      TransactionStore
	assets   AssetStore
}

// NewImportService creates a new ImportService instance.
func NewImportService(sessions SessionStore, txs TransactionStore, assets AssetStore) *ImportService {
	return &ImportService{sessions: sessions, txs: txs, assets: assets}
}

// Import stores every record it can and counts the rest as failed. A bad
// record never aborts the import. Sessions go first so transactions can be
// relinked to the stored session IDs.
func (s *ImportService) Import(ctx context.Context, userID int64, data ImportData) (*ImportResult, error) {
	result := &ImportResult{ID: uuid.NewString()}
	logger := log.With().Str("import_id", result.ID).Int64("user_id", userID).Logger()

	var (
		mu         sync.Mutex
		sessionIDs = make(map[string]int64, len(data.Sessions))
	)

	tally := func(c *ImportCounter, collection string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			c.Failed++
			metrics.ImportedRecords.WithLabelValues(collection, "failed").Inc()
			logger.Warn().Err(err).Str("collection", collection).Msg("Import record rejected")
			return
		}
		c.Success++
		metrics.ImportedRecords.WithLabelValues(collection, "success").Inc()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, in := range data.Sessions {
		g.Go(func() error {
			stored, err := s.importSession(gctx, userID, in.Session)
			if err == nil && in.ClientID != "" {
				mu.Lock()
				sessionIDs[in.ClientID] = stored.ID
				mu.Unlock()
			}
			tally(&result.Sessions, "sessions", err)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import interrupted: %w", err)
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, in := range data.Transactions {
		g.Go(func() error {
			tx := in.Transaction
			tx.ID = 0
			tx.UserID = userID
			tx.SessionID = nil
			if id, ok := sessionIDs[in.ClientSessionID]; ok {
				tx.SessionID = &id
			}
			err := validateTransaction(&tx)
			if err == nil {
				_, err = s.txs.Create(gctx, &tx)
			}
			tally(&result.Transactions, "transactions", err)
			return gctx.Err()
		})
	}
	for _, in := range data.Assets {
		g.Go(func() error {
			a := in
			a.ID = 0
			a.UserID = userID
			err := validateAsset(&a)
			if err == nil {
				a.Quantity = a.EffectiveQuantity()
				_, err = s.assets.Create(gctx, &a)
			}
			tally(&result.Assets, "assets", err)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import interrupted: %w", err)
	}

	logger.Info().
		Int("migrated", result.TotalMigrated()).
		Int("failed", result.TotalFailed()).
		Msg("Import finished")

	return result, nil
}

// importSession stores a client session as exported, settled values included.
func (s *ImportService) importSession(ctx context.Context, userID int64, in model.Session) (*model.Session, error) {
	in.ID = 0
	in.UserID = userID
	if in.Status == "" {
		in.Status = model.SessionActive
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.MultiAccount == 0 {
		in.MultiAccount = model.MinMultiAccount
	}
	if err := ledger.ValidateMultiAccount(in.MultiAccount); err != nil {
		return nil, err
	}
	if in.StartTime.IsZero() {
		return nil, ledger.ErrMissingStartTime
	}
	if in.EndTime != nil && in.EndTime.Before(in.StartTime) {
		return nil, ledger.ErrEndBeforeStart
	}
	if in.DurationHours < 0 || in.PointCardCost < 0 {
		return nil, fmt.Errorf("%w: negative duration or cost", ErrInvalidInput)
	}
	// an ended session without stored figures gets them from its own times
	if in.Status == model.SessionEnded && in.EndTime != nil && in.DurationHours == 0 && in.PointCardCost == 0 {
		hours := ledger.DurationHours(in.StartTime, *in.EndTime)
		in.DurationHours = hours.InexactFloat64()
		in.PointCardCost = ledger.PointCardCost(hours, in.MultiAccount).InexactFloat64()
	}
	return s.sessions.Create(ctx, &in)
}
