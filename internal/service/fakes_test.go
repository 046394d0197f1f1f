package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/repository"
)

// memStore is an in-memory implementation of every store interface.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*model.User
	sessions map[int64]*model.Session
	txs      map[int64]*model.Transaction
	assets   map[int64]*model.Asset

	// failTxAmount makes transaction inserts with this amount fail.
	failTxAmount *float64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*model.User),
		sessions: make(map[int64]*model.Session),
		txs:      make(map[int64]*model.Transaction),
		assets:   make(map[int64]*model.Asset),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// users

type memUsers struct{ *memStore }

func (m memUsers) GetOrCreate(_ context.Context, telegramID int64, username string) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[telegramID]; ok {
		cp := *u
		return &cp, false, nil
	}
	u := &model.User{TelegramID: telegramID, Username: username, CreatedAt: time.Now()}
	m.users[telegramID] = u
	cp := *u
	return &cp, true, nil
}

func (m memUsers) GetByID(_ context.Context, telegramID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[telegramID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

// sessions

type memSessions struct{ *memStore }

func (m memSessions) Create(_ context.Context, s *model.Session) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.ID = m.id()
	if cp.StartTime.IsZero() {
		cp.StartTime = time.Now()
	}
	if cp.Status == "" {
		cp.Status = model.SessionActive
	}
	m.sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m memSessions) GetByID(_ context.Context, userID, id int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m memSessions) GetLatestActive(ctx context.Context, userID int64) (*model.Session, error) {
	list, _ := m.ListByUser(ctx, userID, model.SessionFilter{Status: model.SessionActive, Limit: 1})
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return list[0], nil
}

func (m memSessions) ListByUser(_ context.Context, userID int64, f model.SessionFilter) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if s.UserID != userID || (f.Status != "" && s.Status != f.Status) || !f.Range.Contains(s.StartTime) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m memSessions) SaveSettled(_ context.Context, s *model.Session) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[s.ID]
	if !ok || stored.UserID != s.UserID || stored.Status != model.SessionActive {
		return nil, repository.ErrSessionNotActive
	}
	stored.EndTime = s.EndTime
	stored.DurationHours = s.DurationHours
	stored.PointCardCost = s.PointCardCost
	stored.Status = model.SessionEnded
	cp := *stored
	return &cp, nil
}

func (m memSessions) SaveArchived(_ context.Context, userID, id int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[id]
	if !ok || stored.UserID != userID || stored.Status != model.SessionActive {
		return nil, repository.ErrSessionNotActive
	}
	stored.Status = model.SessionArchived
	cp := *stored
	return &cp, nil
}

func (m memSessions) UpdateNotes(_ context.Context, userID, id int64, notes *string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[id]
	if !ok || stored.UserID != userID {
		return nil, repository.ErrNotFound
	}
	stored.Notes = notes
	cp := *stored
	return &cp, nil
}

func (m memSessions) Delete(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[id]
	if !ok || stored.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.sessions, id)
	for _, tx := range m.txs {
		if tx.SessionID != nil && *tx.SessionID == id {
			tx.SessionID = nil
		}
	}
	return nil
}

// transactions

type memTxs struct{ *memStore }

func (m memTxs) insert(tx *model.Transaction) (*model.Transaction, error) {
	if m.failTxAmount != nil && tx.Amount == *m.failTxAmount {
		return nil, repository.ErrConstraint
	}
	cp := *tx
	cp.ID = m.id()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.txs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m memTxs) Create(_ context.Context, tx *model.Transaction) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(tx)
}

func (m memTxs) CreateBatch(_ context.Context, txs []*model.Transaction) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	var inserted []int64
	for _, tx := range txs {
		created, err := m.insert(tx)
		if err != nil {
			// emulate the surrounding database transaction rolling back
			for _, id := range inserted {
				delete(m.txs, id)
			}
			return nil, err
		}
		inserted = append(inserted, created.ID)
		out = append(out, created)
	}
	return out, nil
}

func (m memTxs) GetByID(_ context.Context, userID, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m memTxs) filtered(userID int64, f model.TransactionFilter) []*model.Transaction {
	var out []*model.Transaction
	for _, tx := range m.txs {
		if tx.UserID != userID ||
			(f.Type != "" && tx.Type != f.Type) ||
			(f.Category != "" && tx.Category != f.Category) ||
			(f.SessionID != nil && (tx.SessionID == nil || *tx.SessionID != *f.SessionID)) ||
			!f.Range.Contains(tx.CreatedAt) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m memTxs) ListByUser(_ context.Context, userID int64, f model.TransactionFilter) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filtered(userID, f)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m memTxs) CountByUser(_ context.Context, userID int64, f model.TransactionFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filtered(userID, f)), nil
}

func (m memTxs) Update(_ context.Context, userID, id int64, upd model.TransactionUpdate) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if upd.Type != nil {
		tx.Type = *upd.Type
	}
	if upd.Category != nil {
		tx.Category = *upd.Category
	}
	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.Item != nil {
		tx.Item = upd.Item
	}
	if upd.Notes != nil {
		tx.Notes = upd.Notes
	}
	if upd.SessionID != nil {
		tx.SessionID = upd.SessionID
	}
	cp := *tx
	return &cp, nil
}

func (m memTxs) Delete(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.txs, id)
	return nil
}

// assets

type memAssets struct{ *memStore }

func (m memAssets) Create(_ context.Context, a *model.Asset) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	cp.ID = m.id()
	cp.CreatedAt = time.Now()
	m.assets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m memAssets) GetByID(_ context.Context, userID, id int64) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAssets) ListByUser(_ context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Asset
	for _, a := range m.assets {
		if a.UserID != userID || (assetType != "" && a.Type != assetType) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m memAssets) Update(_ context.Context, userID, id int64, upd model.AssetUpdate) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Type != nil {
		a.Type = *upd.Type
	}
	if upd.Value != nil {
		a.Value = *upd.Value
	}
	if upd.Quantity != nil {
		a.Quantity = *upd.Quantity
	}
	if upd.Description != nil {
		a.Description = upd.Description
	}
	cp := *a
	return &cp, nil
}

func (m memAssets) Delete(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.assets, id)
	return nil
}

// memRunner runs fn directly and restores the store when fn fails.
type memRunner struct {
	store *memStore
	calls int
}

func (r *memRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	r.store.mu.Lock()
	sessions := make(map[int64]model.Session, len(r.store.sessions))
	for id, s := range r.store.sessions {
		sessions[id] = *s
	}
	txs := make(map[int64]model.Transaction, len(r.store.txs))
	for id, tx := range r.store.txs {
		txs[id] = *tx
	}
	r.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		r.store.sessions = make(map[int64]*model.Session, len(sessions))
		for id, s := range sessions {
			s := s
			r.store.sessions[id] = &s
		}
		r.store.txs = make(map[int64]*model.Transaction, len(txs))
		for id, tx := range txs {
			tx := tx
			r.store.txs[id] = &tx
		}
		return err
	}
	return nil
}

type fixture struct {
	store    *memStore
	runner   *memRunner
	users    memUsers
	sessions memSessions
	txs      memTxs
	assets   memAssets
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{
		store:    store,
		runner:   &memRunner{store: store},
		users:    memUsers{store},
		sessions: memSessions{store},
		txs:      memTxs{store},
		assets:   memAssets{store},
	}
}

func ptr[T any](v T) *T { return &v }
