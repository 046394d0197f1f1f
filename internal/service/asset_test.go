package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-ledger-bot/internal/model"
)

func TestAssetService_Create(t *testing.T) {
	f := newFixture()
	svc := NewAssetService(f.assets)
	ctx := context.Background()

	a, err := svc.Create(ctx, 1, &model.Asset{Name: "  大海龟 ", Type: model.AssetPet, Value: 20})
	require.NoError(t, err)
	assert.Equal(t, "大海龟", a.Name)
	assert.Equal(t, 1, a.Quantity, "quantity defaults to 1")
	assert.Equal(t, int64(1), a.UserID)

	_, err = svc.Create(ctx, 1, &model.Asset{Name: "", Type: model.AssetPet})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, 1, &model.Asset{Name: "房子", Type: "房产"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, 1, &model.Asset{Name: "点卡", Type: model.AssetOther, Value: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssetService_ListAndUpdate(t *testing.T) {
	f := newFixture()
	svc := NewAssetService(f.assets)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, &model.Asset{Name: "龙宫号", Type: model.AssetCharacter, Value: 3000})
	require.NoError(t, err)
	gold, err := svc.Create(ctx, 1, &model.Asset{Name: "储备金", Type: model.AssetCurrency, Value: 50, Quantity: 4})
	require.NoError(t, err)

	currency, err := svc.List(ctx, 1, model.AssetCurrency)
	require.NoError(t, err)
	require.Len(t, currency, 1)
	assert.Equal(t, "200", currency[0].TotalValue().String())

	_, err = svc.List(ctx, 1, "宠物")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, 1, gold.ID, model.AssetUpdate{Quantity: ptr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Update(ctx, 1, gold.ID, model.AssetUpdate{Name: ptr("   ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Update(ctx, 1, gold.ID, model.AssetUpdate{Name: ptr(strings.Repeat("金", maxAssetNameLength+1))})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Update(ctx, 1, gold.ID, model.AssetUpdate{Description: ptr(strings.Repeat("述", maxAssetDescriptionLength+1))})
	assert.ErrorIs(t, err, ErrInvalidInput)

	updated, err := svc.Update(ctx, 1, gold.ID, model.AssetUpdate{Value: ptr(55.5)})
	require.NoError(t, err)
	assert.Equal(t, "222", updated.TotalValue().String())

	require.NoError(t, svc.Delete(ctx, 1, gold.ID))
	all, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
