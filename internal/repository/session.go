package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"game-ledger-bot/internal/model"
)

var sessionColumns = []string{
	"id", "user_id", "start_time", "end_time", "duration_hours", "multi_account",
	"point_card_cost", "status", "notes", "created_at", "updated_at",
}

const sessionReturning = `RETURNING id, user_id, start_time, end_time, duration_hours, multi_account,
	point_card_cost, status, notes, created_at, updated_at`

func scanSession(row scanner) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StartTime,
		&s.EndTime,
		&s.DurationHours,
		&s.MultiAccount,
		&s.PointCardCost,
		&s.Status,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionRepository handles play session persistence.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session as given. A zero StartTime means now.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	const query = `
		INSERT INTO sessions (user_id, start_time, end_time, duration_hours, multi_account,
			point_card_cost, status, notes, created_at, updated_at)
		VALUES ($1, COALESCE($2, NOW()), $3, $4, $5, $6, $7, $8, NOW(), NOW())
	` + sessionReturning

	status := s.Status
	if status == "" {
		status = model.SessionActive
	}

	created, err := scanSession(querier(ctx, r.pool).QueryRow(ctx, query,
		s.UserID, nullTime(s.StartTime), s.EndTime, s.DurationHours, s.MultiAccount,
		s.PointCardCost, status, s.Notes,
	))
	if err != nil {
		return nil, mapError(err, "create session")
	}
	return created, nil
}

// GetByID retrieves a session owned by userID.
// Returns ErrNotFound if it does not exist or belongs to someone else.
func (r *SessionRepository) GetByID(ctx context.Context, userID, id int64) (*model.Session, error) {
	query, args, err := psql.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	s, err := scanSession(querier(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get session")
	}
	return s, nil
}

// GetLatestActive returns the most recently started active session of userID.
func (r *SessionRepository) GetLatestActive(ctx context.Context, userID int64) (*model.Session, error) {
	sessions, err := r.ListByUser(ctx, userID, model.SessionFilter{Status: model.SessionActive, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	return sessions[0], nil
}

// ListByUser returns the sessions of userID, newest start first.
// Range bounds apply to start_time and are inclusive.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, filter model.SessionFilter) ([]*model.Session, error) {
	builder := psql.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("start_time DESC", "id DESC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	builder = whereRange(builder, "start_time", filter.Range)
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// SaveSettled persists a settled session.
// The write only applies while the stored row is still active; otherwise
// ErrSessionNotActive is returned and nothing changes.
func (r *SessionRepository) SaveSettled(ctx context.Context, s *model.Session) (*model.Session, error) {
	const query = `
		UPDATE sessions
		SET end_time = $3, duration_hours = $4, point_card_cost = $5,
			status = 'ended', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'active'
	` + sessionReturning

	saved, err := scanSession(querier(ctx, r.pool).QueryRow(ctx, query,
		s.ID, s.UserID, s.EndTime, s.DurationHours, s.PointCardCost,
	))
	if err != nil {
		err = mapError(err, "save settled session")
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotActive
		}
		return nil, err
	}
	return saved, nil
}

// SaveArchived marks an active session archived, guarded like SaveSettled.
func (r *SessionRepository) SaveArchived(ctx context.Context, userID, id int64) (*model.Session, error) {
	const query = `
		UPDATE sessions
		SET status = 'archived', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'active'
	` + sessionReturning

	saved, err := scanSession(querier(ctx, r.pool).QueryRow(ctx, query, id, userID))
	if err != nil {
		err = mapError(err, "archive session")
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotActive
		}
		return nil, err
	}
	return saved, nil
}

// UpdateNotes replaces the note of a session.
func (r *SessionRepository) UpdateNotes(ctx context.Context, userID, id int64, notes *string) (*model.Session, error) {
	const query = `
		UPDATE sessions
		SET notes = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	` + sessionReturning

	saved, err := scanSession(querier(ctx, r.pool).QueryRow(ctx, query, id, userID, notes))
	if err != nil {
		return nil, mapError(err, "update session notes")
	}
	return saved, nil
}

// Delete removes a session. Its transactions keep existing with no session link.
func (r *SessionRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM sessions WHERE id = $1 AND user_id = $2`

	result, err := querier(ctx, r.pool).Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
