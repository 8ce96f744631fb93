package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/milkledger/milkledger/internal/milktype/domain"
	"github.com/milkledger/milkledger/internal/milktype/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*snowflake.Node, domain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.MilkType{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return node, svc
}

func TestCreateAndList(t *testing.T) {
	_, svc := setupTest(t)
	ctx := context.Background()

	cow, err := svc.Create(ctx, domain.CreateMilkTypeRequest{
		Name:         "cow",
		RatePerLiter: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
	assert.NotZero(t, cow.ID)

	_, err = svc.Create(ctx, domain.CreateMilkTypeRequest{
		Name:         "buffalo",
		RatePerLiter: decimal.RequireFromString("65.00"),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateMilkTypeRequest{
		Name:         " ",
		RatePerLiter: decimal.RequireFromString("10.00"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateMilkTypeRequest{
		Name:         "goat",
		RatePerLiter: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	types, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}

func TestUpdateRate(t *testing.T) {
	node, svc := setupTest(t)
	ctx := context.Background()

	cow, err := svc.Create(ctx, domain.CreateMilkTypeRequest{
		Name:         "cow",
		RatePerLiter: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateRate(ctx, domain.UpdateRateRequest{
		ID:           cow.ID.String(),
		RatePerLiter: decimal.RequireFromString("52.50"),
	})
	require.NoError(t, err)
	assert.True(t, updated.RatePerLiter.Equal(decimal.RequireFromString("52.50")))

	// Rate changes never touch already-recorded sales; only the stored rate.
	found, err := svc.GetByID(ctx, domain.GetMilkTypeRequest{ID: cow.ID.String()})
	require.NoError(t, err)
	assert.True(t, found.RatePerLiter.Equal(decimal.RequireFromString("52.50")))

	_, err = svc.UpdateRate(ctx, domain.UpdateRateRequest{
		ID:           cow.ID.String(),
		RatePerLiter: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	_, err = svc.UpdateRate(ctx, domain.UpdateRateRequest{
		ID:           node.Generate().String(),
		RatePerLiter: decimal.RequireFromString("10.00"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
