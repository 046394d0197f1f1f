package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"game-ledger-bot/internal/ledger"
	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/pkg/lock"
	"game-ledger-bot/internal/pkg/metrics"
	"game-ledger-bot/internal/repository"
)

// DefaultLockTimeout bounds how long a settlement waits for another one on the same session.
const DefaultLockTimeout = 5 * time.Second

// SessionPatch is a partial session update. Status ended settles the session
// at EndTime (now when nil); status archived archives it.
type SessionPatch struct {
	Status  *model.SessionStatus
	EndTime *time.Time
	Notes   *string
}

// SessionService runs the play session lifecycle.
type SessionService struct {
	sessions    SessionStore
	txs         TransactionStore
	runner      TxRunner
	locks       *lock.KeyedLock
	lockTimeout time.Duration
	now         func() time.Time
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(sessions SessionStore, txs TransactionStore, runner TxRunner, locks *lock.KeyedLock) *SessionService {
	if locks == nil {
		locks = lock.NewKeyedLock()
	}
	return &SessionService{
		sessions:    sessions,
		txs:         txs,
		runner:      runner,
		locks:       locks,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
}

// Start opens an active session starting now.
func (s *SessionService) Start(ctx context.Context, userID int64, multiAccount int, notes *string) (*model.Session, error) {
	if err := ledger.ValidateMultiAccount(multiAccount); err != nil {
		return nil, err
	}

	created, err := s.sessions.Create(ctx, &model.Session{
		UserID:       userID,
		StartTime:    s.now(),
		MultiAccount: multiAccount,
		Status:       model.SessionActive,
		Notes:        notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	metrics.SessionsStarted.Inc()
	log.Info().
		Int64("user_id", userID).
		Int64("session_id", created.ID).
		Int("multi_account", multiAccount).
		Msg("Session started")

	return created, nil
}

// Get returns one session of userID.
func (s *SessionService) Get(ctx context.Context, userID, id int64) (*model.Session, error) {
	return s.sessions.GetByID(ctx, userID, id)
}

// List returns the sessions of userID, newest first, optionally by status.
func (s *SessionService) List(ctx context.Context, userID int64, status model.SessionStatus, limit int) ([]*model.Session, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.sessions.ListByUser(ctx, userID, model.SessionFilter{Status: status, Limit: limit})
}

// Settle ends an active session at endTime (now when zero) and stores its
// duration and point-card cost. A session is settled at most once.
func (s *SessionService) Settle(ctx context.Context, userID, id int64, endTime time.Time) (*model.Session, error) {
	return s.settle(ctx, userID, id, endTime, nil, nil)
}

// SettleWithTransactions settles a session and records txs against it in one
// database transaction. Either everything is stored or nothing is.
func (s *SessionService) SettleWithTransactions(
	ctx context.Context,
	userID, id int64,
	endTime time.Time,
	txs []*model.Transaction,
) (*model.Session, []*model.Transaction, error) {
	for i, tx := range txs {
		tx.UserID = userID
		tx.SessionID = &id
		if err := validateTransaction(tx); err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
	}

	var recorded []*model.Transaction
	saved, err := s.settle(ctx, userID, id, endTime, nil, func(ctx context.Context) error {
		var err error
		recorded, err = s.txs.CreateBatch(ctx, txs)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	for _, tx := range recorded {
		metrics.TransactionsRecorded.WithLabelValues(string(tx.Type)).Inc()
	}
	return saved, recorded, nil
}

// EndLatest settles the most recent active session of userID now,
// replacing its note when one is given.
func (s *SessionService) EndLatest(ctx context.Context, userID int64, notes *string) (*model.Session, error) {
	active, err := s.latestActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, active.ID, time.Time{}, notes, nil)
}

// Archive shelves an active session without a cost.
func (s *SessionService) Archive(ctx context.Context, userID, id int64) (*model.Session, error) {
	return s.archive(ctx, userID, id, nil)
}

// archive checks the transition before writing anything. A non-nil note is
// stored in the same database transaction as the status change.
func (s *SessionService) archive(ctx context.Context, userID, id int64, notes *string) (*model.Session, error) {
	var saved *model.Session
	work := func(ctx context.Context) error {
		current, err := s.sessions.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if _, err := ledger.ArchiveSession(*current); err != nil {
			return err
		}
		if err := s.writeNotes(ctx, userID, id, notes); err != nil {
			return err
		}
		saved, err = s.sessions.SaveArchived(ctx, userID, id)
		return s.conflict(err, id)
	}

	err := s.locks.WithLockContext(ctx, id, s.lockTimeout, func() error {
		return s.inTx(ctx, notes != nil, work)
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsClosed.WithLabelValues(string(model.SessionArchived)).Inc()
	log.Info().Int64("user_id", userID).Int64("session_id", id).Msg("Session archived")
	return saved, nil
}

// ArchiveLatest archives the most recent active session of userID.
func (s *SessionService) ArchiveLatest(ctx context.Context, userID int64) (*model.Session, error) {
	active, err := s.latestActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Archive(ctx, userID, active.ID)
}

// Update applies a partial update. A rejected update changes nothing; a note
// sent with a status change is stored together with it.
func (s *SessionService) Update(ctx context.Context, userID, id int64, patch SessionPatch) (*model.Session, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
	}

	current, err := s.sessions.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Status == nil || *patch.Status == current.Status {
		if patch.Notes == nil {
			return current, nil
		}
		var saved *model.Session
		err := s.locks.WithLockContext(ctx, id, s.lockTimeout, func() error {
			var err error
			saved, err = s.sessions.UpdateNotes(ctx, userID, id, patch.Notes)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update session notes: %w", err)
		}
		return saved, nil
	}

	switch *patch.Status {
	case model.SessionEnded:
		var end time.Time
		if patch.EndTime != nil {
			end = *patch.EndTime
		}
		return s.settle(ctx, userID, id, end, patch.Notes, nil)
	case model.SessionArchived:
		return s.archive(ctx, userID, id, patch.Notes)
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransition, current.Status, *patch.Status)
	}
}

// Delete removes a session. Linked transactions stay, unlinked.
func (s *SessionService) Delete(ctx context.Context, userID, id int64) error {
	return s.locks.WithLockContext(ctx, id, s.lockTimeout, func() error {
		return s.sessions.Delete(ctx, userID, id)
	})
}

// settle holds the session's key for the whole read, settle and write
// sequence. A non-nil note and extra, when set, run in the same database
// transaction, after the settlement has been checked.
func (s *SessionService) settle(
	ctx context.Context,
	userID, id int64,
	endTime time.Time,
	notes *string,
	extra func(ctx context.Context) error,
) (*model.Session, error) {
	if endTime.IsZero() {
		endTime = s.now()
	}

	var saved *model.Session
	work := func(ctx context.Context) error {
		current, err := s.sessions.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		settled, err := ledger.SettleSession(*current, endTime)
		if err != nil {
			return err
		}
		if err := s.writeNotes(ctx, userID, id, notes); err != nil {
			return err
		}
		saved, err = s.sessions.SaveSettled(ctx, &settled)
		if err := s.conflict(err, id); err != nil {
			return err
		}
		if extra != nil {
			return extra(ctx)
		}
		return nil
	}

	err := s.locks.WithLockContext(ctx, id, s.lockTimeout, func() error {
		return s.inTx(ctx, extra != nil || notes != nil, work)
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsClosed.WithLabelValues(string(model.SessionEnded)).Inc()
	metrics.PointCardCost.Add(saved.PointCardCost)
	log.Info().
		Int64("user_id", userID).
		Int64("session_id", id).
		Float64("duration_hours", saved.DurationHours).
		Float64("point_card_cost", saved.PointCardCost).
		Msg("Session settled")

	return saved, nil
}

// inTx runs work in a database transaction when it writes more than one row.
func (s *SessionService) inTx(ctx context.Context, multi bool, work func(ctx context.Context) error) error {
	if !multi || s.runner == nil {
		return work(ctx)
	}
	return s.runner.RunInTx(ctx, work)
}

func (s *SessionService) writeNotes(ctx context.Context, userID, id int64, notes *string) error {
	if notes == nil {
		return nil
	}
	if _, err := s.sessions.UpdateNotes(ctx, userID, id, notes); err != nil {
		return fmt.Errorf("failed to update session notes: %w", err)
	}
	return nil
}

// conflict turns a lost optimistic write into the ledger's not-active error.
func (s *SessionService) conflict(err error, id int64) error {
	if errors.Is(err, repository.ErrSessionNotActive) {
		metrics.SettlementConflicts.Inc()
		return fmt.Errorf("%w: session %d was closed concurrently", ledger.ErrSessionNotActive, id)
	}
	return err
}

func (s *SessionService) latestActive(ctx context.Context, userID int64) (*model.Session, error) {
	active, err := s.sessions.GetLatestActive(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return active, nil
}
