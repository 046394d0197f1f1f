// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"

	"game-ledger-bot/internal/model"
)

// Common errors for service operations.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoActiveSession  = errors.New("no active session")
	ErrLinkedSession    = errors.New("linked session does not exist")
	ErrStatusTransition = errors.New("unsupported status transition")
)

// UserStore persists ledger owners.
type UserStore interface {
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error)
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
}

// SessionStore persists play sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) (*model.Session, error)
	GetByID(ctx context.Context, userID, id int64) (*model.Session, error)
	GetLatestActive(ctx context.Context, userID int64) (*model.Session, error)
	ListByUser(ctx context.Context, userID int64, filter model.SessionFilter) ([]*model.Session, error)
	SaveSettled(ctx context.Context, s *model.Session) (*model.Session, error)
	SaveArchived(ctx context.Context, userID, id int64) (*model.Session, error)
	UpdateNotes(ctx context.Context, userID, id int64, notes *string) (*model.Session, error)
	Delete(ctx context.Context, userID, id int64) error
}

// TransactionStore persists income and expense records.
type TransactionStore interface {
	Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
	CreateBatch(ctx context.Context, txs []*model.Transaction) ([]*model.Transaction, error)
	GetByID(ctx context.Context, userID, id int64) (*model.Transaction, error)
	ListByUser(ctx context.Context, userID int64, filter model.TransactionFilter) ([]*model.Transaction, error)
	CountByUser(ctx context.Context, userID int64, filter model.TransactionFilter) (int, error)
	Update(ctx context.Context, userID, id int64, upd model.TransactionUpdate) (*model.Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
}

// AssetStore persists owned assets.
type AssetStore interface {
	Create(ctx context.Context, a *model.Asset) (*model.Asset, error)
	GetByID(ctx context.Context, userID, id int64) (*model.Asset, error)
	ListByUser(ctx context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error)
	Update(ctx context.Context, userID, id int64, upd model.AssetUpdate) (*model.Asset, error)
	Delete(ctx context.Context, userID, id int64) error
}

// TxRunner runs fn inside one database transaction.
// Stores called with the ctx handed to fn take part in it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
