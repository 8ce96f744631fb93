package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	balancedomain "github.com/milkledger/milkledger/internal/balance/domain"
	balanceservice "github.com/milkledger/milkledger/internal/balance/service"
	"github.com/milkledger/milkledger/internal/clock"
	customerdomain "github.com/milkledger/milkledger/internal/customer/domain"
	customerrepository "github.com/milkledger/milkledger/internal/customer/repository"
	milktypedomain "github.com/milkledger/milkledger/internal/milktype/domain"
	milktyperepository "github.com/milkledger/milkledger/internal/milktype/repository"
	paymentdomain "github.com/milkledger/milkledger/internal/payment/domain"
	"github.com/milkledger/milkledger/internal/sale/domain"
	"github.com/milkledger/milkledger/internal/sale/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&milktypedomain.MilkType{},
		&customerdomain.Customer{},
		&domain.Sale{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentAllocation{},
		&balancedomain.MonthlyBalance{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	balanceSvc := balanceservice.New(balanceservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})

	svc := New(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Repo:         repository.Provide(),
		CustomerRepo: customerrepository.Provide(),
		MilkTypeRepo: milktyperepository.Provide(),
		BalanceSvc:   balanceSvc,
	})

	return &testEnv{db: db, node: node, svc: svc}
}

func (e *testEnv) seedMilkType(t *testing.T, name, rate string) snowflake.ID {
	t.Helper()
	milkType := milktypedomain.MilkType{
		ID:           e.node.Generate(),
		Name:         name,
		RatePerLiter: decimal.RequireFromString(rate),
	}
	require.NoError(t, e.db.Create(&milkType).Error)
	return milkType.ID
}

func (e *testEnv) seedCustomer(t *testing.T, milkTypeID *snowflake.ID) snowflake.ID {
	t.Helper()
	customer := customerdomain.Customer{
		ID:         e.node.Generate(),
		Name:       "Kamla Niwas",
		MilkTypeID: milkTypeID,
		Metadata:   datatypes.JSONMap{},
	}
	require.NoError(t, e.db.Create(&customer).Error)
	return customer.ID
}

func (e *testEnv) monthRow(t *testing.T, customerID snowflake.ID, year, month int) balancedomain.MonthlyBalance {
	t.Helper()
	var row balancedomain.MonthlyBalance
	err := e.db.Where("customer_id = ? AND year = ? AND month = ?", customerID, year, month).
		First(&row).Error
	require.NoError(t, err)
	return row
}

func TestRecord_Validation(t *testing.T) {
	env := setupTest(t)
	customerID := env.seedCustomer(t, nil)
	ctx := context.Background()
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Date:       date,
		Quantity:   decimal.Zero,
		Rate:       decimal.RequireFromString("50.00"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Quantity:   decimal.RequireFromString("1.00"),
		Rate:       decimal.RequireFromString("50.00"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: env.node.Generate().String(),
		Date:       date,
		Quantity:   decimal.RequireFromString("1.00"),
		Rate:       decimal.RequireFromString("50.00"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecord_ResolvesRateFromMilkType(t *testing.T) {
	env := setupTest(t)
	milkTypeID := env.seedMilkType(t, "buffalo", "55.00")
	customerID := env.seedCustomer(t, &milkTypeID)
	ctx := context.Background()

	sale, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Date:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   decimal.RequireFromString("2.00"),
	})
	require.NoError(t, err)

	assert.True(t, sale.Rate.Equal(decimal.RequireFromString("55.00")))
	require.NotNil(t, sale.MilkTypeID)
	assert.Equal(t, milkTypeID, *sale.MilkTypeID)

	row := env.monthRow(t, customerID, 2025, 1)
	assert.True(t, row.SalesAmount.Equal(decimal.RequireFromString("110.00")))
}

func TestRecord_ExplicitRateWins(t *testing.T) {
	env := setupTest(t)
	milkTypeID := env.seedMilkType(t, "cow", "40.00")
	customerID := env.seedCustomer(t, &milkTypeID)
	ctx := context.Background()

	sale, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Date:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   decimal.RequireFromString("2.00"),
		Rate:       decimal.RequireFromString("48.00"),
	})
	require.NoError(t, err)
	assert.True(t, sale.Rate.Equal(decimal.RequireFromString("48.00")))
}

func TestRecord_NoRateSource(t *testing.T) {
	env := setupTest(t)
	customerID := env.seedCustomer(t, nil)
	ctx := context.Background()

	_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Date:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   decimal.RequireFromString("2.00"),
	})
	assert.ErrorIs(t, err, domain.ErrNoRateSource)
}

func TestUpdate_MoveAcrossMonthRecalculatesBoth(t *testing.T) {
	env := setupTest(t)
	customerID := env.seedCustomer(t, nil)
	ctx := context.Background()

	sale, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Date:       time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		Quantity:   decimal.RequireFromString("10.00"),
		Rate:       decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	january := env.monthRow(t, customerID, 2025, 1)
	require.True(t, january.SalesAmount.Equal(decimal.RequireFromString("500.00")))

	newDate := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = env.svc.Update(ctx, domain.UpdateSaleRequest{
		ID:   sale.ID.String(),
		Date: &newDate,
	})
	require.NoError(t, err)

	january = env.monthRow(t, customerID, 2025, 1)
	assert.True(t, january.SalesAmount.IsZero())
	assert.True(t, january.IsPaid)

	february := env.monthRow(t, customerID, 2025, 2)
	assert.True(t, february.SalesAmount.Equal(decimal.RequireFromString("500.00")))
	assert.False(t, february.IsPaid)
}

func TestDelete_RecalculatesMonth(t *testing.T) {
	env := setupTest(t)
	customerID := env.seedCustomer(t, nil)
	ctx := context.Background()

	sale, err := env.svc.Record(ctx, domain.RecordSaleRequest{
		CustomerID: customerID.String(),
		Date:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Quantity:   decimal.RequireFromString("10.00"),
		Rate:       decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, domain.DeleteSaleRequest{ID: sale.ID.String()}))

	row := env.monthRow(t, customerID, 2025, 1)
	assert.True(t, row.SalesAmount.IsZero())
	assert.True(t, row.IsPaid)

	_, err = env.svc.GetByID(ctx, domain.GetSaleRequest{ID: sale.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FilterByDateRange(t *testing.T) {
	env := setupTest(t)
	customerID := env.seedCustomer(t, nil)
	ctx := context.Background()

	for month := 1; month <= 3; month++ {
		_, err := env.svc.Record(ctx, domain.RecordSaleRequest{
			CustomerID: customerID.String(),
			Date:       time.Date(2025, time.Month(month), 10, 0, 0, 0, 0, time.UTC),
			Quantity:   decimal.RequireFromString("1.00"),
			Rate:       decimal.RequireFromString("50.00"),
		})
		require.NoError(t, err)
	}

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	resp, err := env.svc.List(ctx, domain.ListSaleRequest{
		CustomerID: customerID.String(),
		DateFrom:   &from,
		DateTo:     &to,
	})
	require.NoError(t, err)
	require.Len(t, resp.Sales, 1)
	assert.Equal(t, time.Month(2), resp.Sales[0].Date.Month())
}
