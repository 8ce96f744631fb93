package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	balancedomain "github.com/milkledger/milkledger/internal/balance/domain"
	"github.com/milkledger/milkledger/internal/clock"
	customerdomain "github.com/milkledger/milkledger/internal/customer/domain"
	milktypedomain "github.com/milkledger/milkledger/internal/milktype/domain"
	paymentdomain "github.com/milkledger/milkledger/internal/payment/domain"
	saledomain "github.com/milkledger/milkledger/internal/sale/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gorm.DB, *snowflake.Node, balancedomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&milktypedomain.MilkType{},
		&customerdomain.Customer{},
		&saledomain.Sale{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentAllocation{},
		&balancedomain.MonthlyBalance{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	return db, node, svc
}

func seedCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node) snowflake.ID {
	t.Helper()
	customer := customerdomain.Customer{
		ID:       node.Generate(),
		Name:     "Asha Dairy Stop",
		Metadata: datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&customer).Error)
	return customer.ID
}

func seedSale(t *testing.T, db *gorm.DB, node *snowflake.Node, customerID snowflake.ID, date time.Time, quantity, rate string) {
	t.Helper()
	sale := saledomain.Sale{
		ID:         node.Generate(),
		CustomerID: customerID,
		Date:       date,
		Quantity:   decimal.RequireFromString(quantity),
		Rate:       decimal.RequireFromString(rate),
	}
	require.NoError(t, db.Create(&sale).Error)
}

func seedDirectPayment(t *testing.T, db *gorm.DB, node *snowflake.Node, customerID snowflake.ID, date time.Time, amount string, year, month int) snowflake.ID {
	t.Helper()
	payment := paymentdomain.Payment{
		ID:          node.Generate(),
		CustomerID:  customerID,
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		TargetMonth: &month,
		TargetYear:  &year,
	}
	require.NoError(t, db.Create(&payment).Error)
	return payment.ID
}

func TestRecalculate_BalanceEquation(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	seedSale(t, db, node, customerID, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "10.00", "50.00")
	seedSale(t, db, node, customerID, time.Date(2025, 1, 22, 0, 0, 0, 0, time.UTC), "5.50", "40.20")
	seedDirectPayment(t, db, node, customerID, time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC), "300.00", 2025, 1)

	snapshot, err := svc.Recalculate(context.Background(), customerID, 2025, 1)
	require.NoError(t, err)

	assert.True(t, snapshot.SalesAmount.Equal(decimal.RequireFromString("721.10")), "sales = %s", snapshot.SalesAmount)
	assert.True(t, snapshot.PaymentAmount.Equal(decimal.RequireFromString("300.00")), "payments = %s", snapshot.PaymentAmount)
	assert.True(t, snapshot.Balance.Equal(decimal.RequireFromString("421.10")), "balance = %s", snapshot.Balance)
	assert.False(t, snapshot.IsPaid)

	var row balancedomain.MonthlyBalance
	require.NoError(t, db.Where("customer_id = ? AND year = ? AND month = ?", customerID, 2025, 1).First(&row).Error)
	assert.True(t, row.SalesAmount.Equal(snapshot.SalesAmount))
	assert.True(t, row.PaymentAmount.Equal(snapshot.PaymentAmount))
	assert.False(t, row.IsPaid)
}

func TestRecalculate_PaidWhenPaymentsCoverSales(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	seedSale(t, db, node, customerID, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "10.00", "50.00")
	seedDirectPayment(t, db, node, customerID, time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC), "500.00", 2025, 1)

	snapshot, err := svc.Recalculate(context.Background(), customerID, 2025, 1)
	require.NoError(t, err)
	assert.True(t, snapshot.IsPaid)
	assert.True(t, snapshot.Balance.IsZero())
}

func TestRecalculate_Idempotent(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	seedSale(t, db, node, customerID, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), "2.00", "60.00")

	first, err := svc.Recalculate(context.Background(), customerID, 2025, 3)
	require.NoError(t, err)
	second, err := svc.Recalculate(context.Background(), customerID, 2025, 3)
	require.NoError(t, err)

	assert.True(t, first.SalesAmount.Equal(second.SalesAmount))
	assert.True(t, first.PaymentAmount.Equal(second.PaymentAmount))
	assert.Equal(t, first.IsPaid, second.IsPaid)

	var count int64
	require.NoError(t, db.Model(&balancedomain.MonthlyBalance{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecalculate_Validation(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	_, err := svc.Recalculate(context.Background(), customerID, 2025, 0)
	assert.ErrorIs(t, err, balancedomain.ErrInvalidMonth)

	_, err = svc.Recalculate(context.Background(), customerID, 2025, 13)
	assert.ErrorIs(t, err, balancedomain.ErrInvalidMonth)

	_, err = svc.Recalculate(context.Background(), customerID, 0, 1)
	assert.ErrorIs(t, err, balancedomain.ErrInvalidYear)

	_, err = svc.Recalculate(context.Background(), 0, 2025, 1)
	assert.ErrorIs(t, err, balancedomain.ErrInvalidCustomer)

	_, err = svc.Recalculate(context.Background(), node.Generate(), 2025, 1)
	assert.ErrorIs(t, err, balancedomain.ErrCustomerNotFound)
}

func TestSweepAll_YearBoundaryAndLeapFebruary(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	seedSale(t, db, node, customerID, time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC), "1.00", "50.00")
	seedSale(t, db, node, customerID, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "2.00", "50.00")
	seedSale(t, db, node, customerID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "3.00", "50.00")

	results, err := svc.SweepAll(context.Background(), customerID)
	require.NoError(t, err)

	// Nov 2023 through Mar 2024 inclusive, chronological, no gaps.
	require.Len(t, results, 5)
	wantMonths := []struct{ year, month int }{
		{2023, 11}, {2023, 12}, {2024, 1}, {2024, 2}, {2024, 3},
	}
	for i, want := range wantMonths {
		assert.Equal(t, want.year, results[i].Year)
		assert.Equal(t, want.month, results[i].Month)
	}

	// The leap-day sale lands in February.
	assert.True(t, results[3].SalesAmount.Equal(decimal.RequireFromString("100.00")))
	// Months with no sales materialize with zero activity.
	assert.True(t, results[1].SalesAmount.IsZero())
	assert.True(t, results[2].SalesAmount.IsZero())
}

func TestSweepAll_NoSales(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	results, err := svc.SweepAll(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUnpaidMonths_FilterAndOrder(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	for month := 1; month <= 3; month++ {
		seedSale(t, db, node, customerID, time.Date(2025, time.Month(month), 15, 0, 0, 0, 0, time.UTC), "10.00", "50.00")
	}
	// January fully covered by a direct payment.
	seedDirectPayment(t, db, node, customerID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), "500.00", 2025, 1)

	unpaid, err := svc.UnpaidMonths(context.Background(), customerID, balancedomain.OrderOldestFirst)
	require.NoError(t, err)

	require.Len(t, unpaid, 2)
	assert.Equal(t, 2, unpaid[0].Month)
	assert.Equal(t, 3, unpaid[1].Month)
	for _, month := range unpaid {
		assert.True(t, month.Remaining.Equal(decimal.RequireFromString("500.00")))
	}

	newest, err := svc.UnpaidMonths(context.Background(), customerID, balancedomain.OrderNewestFirst)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, 3, newest[0].Month)
	assert.Equal(t, 2, newest[1].Month)
}

func TestUnpaidMonths_ZeroSalesMonthExcluded(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	seedSale(t, db, node, customerID, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "10.00", "50.00")
	seedSale(t, db, node, customerID, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "10.00", "50.00")

	unpaid, err := svc.UnpaidMonths(context.Background(), customerID, balancedomain.OrderOldestFirst)
	require.NoError(t, err)

	// February has no activity: materialized as zero and never reported unpaid.
	require.Len(t, unpaid, 2)
	assert.Equal(t, 1, unpaid[0].Month)
	assert.Equal(t, 3, unpaid[1].Month)
}

func TestRecalculate_PaidMonthRevertsWhenPaymentRemoved(t *testing.T) {
	db, node, svc := setupTest(t)
	customerID := seedCustomer(t, db, node)

	seedSale(t, db, node, customerID, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), "10.00", "50.00")
	paymentID := seedDirectPayment(t, db, node, customerID, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), "500.00", 2025, 1)

	snapshot, err := svc.Recalculate(context.Background(), customerID, 2025, 1)
	require.NoError(t, err)
	assert.True(t, snapshot.IsPaid)

	require.NoError(t, db.Exec(`DELETE FROM payments WHERE id = ?`, paymentID).Error)

	snapshot, err = svc.Recalculate(context.Background(), customerID, 2025, 1)
	require.NoError(t, err)
	assert.False(t, snapshot.IsPaid)
	assert.True(t, snapshot.PaymentAmount.IsZero())
}
