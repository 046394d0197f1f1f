package service

import (
	"context"
	"fmt"
	"strings"

	"game-ledger-bot/internal/model"
)

const (
	maxAssetNameLength        = 100
	maxAssetDescriptionLength = 1000
)

// AssetService manages owned game assets.
type AssetService struct {
	assets AssetStore
}

// NewAssetService creates a new AssetService instance.
func NewAssetService(assets AssetStore) *AssetService {
	return &AssetService{assets: assets}
}

func validateAsset(a *model.Asset) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len([]rune(a.Name)) > maxAssetNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, maxAssetNameLength)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, a.Type)
	}
	if a.Value < 0 {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	}
	if a.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if a.Description != nil && len([]rune(*a.Description)) > maxAssetDescriptionLength {
		return fmt.Errorf("%w: description longer than %d characters", ErrInvalidInput, maxAssetDescriptionLength)
	}
	return nil
}

// Create stores an asset for userID. Quantity 0 means 1.
func (s *AssetService) Create(ctx context.Context, userID int64, a *model.Asset) (*model.Asset, error) {
	a.UserID = userID
	if err := validateAsset(a); err != nil {
		return nil, err
	}
	a.Quantity = a.EffectiveQuantity()

	created, err := s.assets.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return created, nil
}

// List returns the assets of userID, newest first, optionally of one type.
func (s *AssetService) List(ctx context.Context, userID int64, assetType model.AssetType) ([]*model.Asset, error) {
	if assetType != "" && !assetType.Valid() {
		return nil, fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, assetType)
	}
	return s.assets.ListByUser(ctx, userID, assetType)
}

// Update changes an asset of userID.
func (s *AssetService) Update(ctx context.Context, userID, id int64, upd model.AssetUpdate) (*model.Asset, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if len([]rune(name)) > maxAssetNameLength {
			return nil, fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, maxAssetNameLength)
		}
		upd.Name = &name
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, *upd.Type)
	}
	if upd.Value != nil && *upd.Value < 0 {
		return nil, fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	}
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if upd.Description != nil && len([]rune(*upd.Description)) > maxAssetDescriptionLength {
		return nil, fmt.Errorf("%w: description longer than %d characters", ErrInvalidInput, maxAssetDescriptionLength)
	}
	return s.assets.Update(ctx, userID, id, upd)
}

// Delete removes an asset of userID.
func (s *AssetService) Delete(ctx context.Context, userID, id int64) error {
	return s.assets.Delete(ctx, userID, id)
}
