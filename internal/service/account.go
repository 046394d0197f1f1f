package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"game-ledger-bot/internal/model"
)

// TokenIssuer signs API tokens for a Telegram user.
type TokenIssuer interface {
	Issue(telegramID int64) (string, time.Time, error)
}

// AccountService handles ledger owners.
type AccountService struct {
	users  UserStore
	tokens TokenIssuer
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(users UserStore, tokens TokenIssuer) *AccountService {
	return &AccountService{users: users, tokens: tokens}
}

// EnsureUser ensures a user exists, creating one if necessary.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}
	if created {
		log.Info().Int64("user_id", telegramID).Str("username", username).Msg("New ledger owner")
	}
	return user, created, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}

// IssueToken ensures the user exists and signs an API token for them.
func (s *AccountService) IssueToken(ctx context.Context, telegramID int64, username string) (string, time.Time, error) {
	if _, _, err := s.EnsureUser(ctx, telegramID, username); err != nil {
		return "", time.Time{}, err
	}
	token, expires, err := s.tokens.Issue(telegramID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue token: %w", err)
	}
	log.Info().Int64("user_id", telegramID).Time("expires_at", expires).Msg("API token issued")
	return token, expires, nil
}
