// Package aggregate holds the single payment/sales aggregation used by both
// the materialized recalculator and the live running-balance reads. Keeping
// one implementation is what guarantees the two paths agree.
//
// A payment is attributed to exactly one channel:
//  1. if it has allocation rows, it counts only through those allocations;
//  2. otherwise, if it carries a direct (month, year) target, its full amount
//     counts toward that month;
//  3. otherwise it counts toward the calendar month of its payment date.
package aggregate

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthRange returns the inclusive start and exclusive end of a calendar
// month in UTC. AddDate handles year-end and leap Februaries.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

type saleRow struct {
	Quantity decimal.Decimal
	Rate     decimal.Decimal
}

type amountRow struct {
	Amount decimal.Decimal
}

func sumSales(rows []saleRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Quantity.Mul(row.Rate))
	}
	return total
}

func sumAmounts(rows []amountRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}

// SalesForMonth sums quantity*rate over sales dated within the month.
// The multiplication happens in Go so the result is exact decimal.
func SalesForMonth(ctx context.Context, db *gorm.DB, customerID snowflake.ID, year, month int) (decimal.Decimal, error) {
	start, end := MonthRange(year, month)
	var rows []saleRow
	err := db.WithContext(ctx).Raw(
		`SELECT quantity, rate FROM sales
		 WHERE customer_id = ? AND date >= ? AND date < ?`,
		customerID, start, end,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sumSales(rows), nil
}

// SalesBefore sums quantity*rate over sales dated strictly before the month.
func SalesBefore(ctx context.Context, db *gorm.DB, customerID snowflake.ID, year, month int) (decimal.Decimal, error) {
	start, _ := MonthRange(year, month)
	var rows []saleRow
	err := db.WithContext(ctx).Raw(
		`SELECT quantity, rate FROM sales
		 WHERE customer_id = ? AND date < ?`,
		customerID, start,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sumSales(rows), nil
}

// PaymentsForMonth sums all payment amounts attributed to the month under the
// one-channel-per-payment rule.
func PaymentsForMonth(ctx context.Context, db *gorm.DB, customerID snowflake.ID, year, month int) (decimal.Decimal, error) {
	start, end := MonthRange(year, month)

	var allocated []amountRow
	err := db.WithContext(ctx).Raw(
		`SELECT pa.amount FROM payment_allocations pa
		 JOIN payments p ON p.id = pa.payment_id
		 WHERE p.customer_id = ? AND pa.year = ? AND pa.month = ?`,
		customerID, year, month,
	).Scan(&allocated).Error
	if err != nil {
		return decimal.Zero, err
	}

	var direct []amountRow
	err = db.WithContext(ctx).Raw(
		`SELECT p.amount FROM payments p
		 WHERE p.customer_id = ? AND p.target_year = ? AND p.target_month = ?
		 AND NOT EXISTS (SELECT 1 FROM payment_allocations pa WHERE pa.payment_id = p.id)`,
		customerID, year, month,
	).Scan(&direct).Error
	if err != nil {
		return decimal.Zero, err
	}

	var unassigned []amountRow
	err = db.WithContext(ctx).Raw(
		`SELECT p.amount FROM payments p
		 WHERE p.customer_id = ? AND p.target_year IS NULL AND p.target_month IS NULL
		 AND p.date >= ? AND p.date < ?
		 AND NOT EXISTS (SELECT 1 FROM payment_allocations pa WHERE pa.payment_id = p.id)`,
		customerID, start, end,
	).Scan(&unassigned).Error
	if err != nil {
		return decimal.Zero, err
	}

	return sumAmounts(allocated).Add(sumAmounts(direct)).Add(sumAmounts(unassigned)), nil
}

// PaymentsBefore sums all payment amounts attributed to months strictly
// before (year, month).
func PaymentsBefore(ctx context.Context, db *gorm.DB, customerID snowflake.ID, year, month int) (decimal.Decimal, error) {
	start, _ := MonthRange(year, month)

	var allocated []amountRow
	err := db.WithContext(ctx).Raw(
		`SELECT pa.amount FROM payment_allocations pa
		 JOIN payments p ON p.id = pa.payment_id
		 WHERE p.customer_id = ? AND (pa.year < ? OR (pa.year = ? AND pa.month < ?))`,
		customerID, year, year, month,
	).Scan(&allocated).Error
	if err != nil {
		return decimal.Zero, err
	}

	var direct []amountRow
	err = db.WithContext(ctx).Raw(
		`SELECT p.amount FROM payments p
		 WHERE p.customer_id = ?
		 AND p.target_year IS NOT NULL AND p.target_month IS NOT NULL
		 AND (p.target_year < ? OR (p.target_year = ? AND p.target_month < ?))
		 AND NOT EXISTS (SELECT 1 FROM payment_allocations pa WHERE pa.payment_id = p.id)`,
		customerID, year, year, month,
	).Scan(&direct).Error
	if err != nil {
		return decimal.Zero, err
	}

	var unassigned []amountRow
	err = db.WithContext(ctx).Raw(
		`SELECT p.amount FROM payments p
		 WHERE p.customer_id = ? AND p.target_year IS NULL AND p.target_month IS NULL
		 AND p.date < ?
		 AND NOT EXISTS (SELECT 1 FROM payment_allocations pa WHERE pa.payment_id = p.id)`,
		customerID, start,
	).Scan(&unassigned).Error
	if err != nil {
		return decimal.Zero, err
	}

	return sumAmounts(allocated).Add(sumAmounts(direct)).Add(sumAmounts(unassigned)), nil
}

// TotalSales sums quantity*rate over every sale the customer has.
func TotalSales(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (decimal.Decimal, error) {
	var rows []saleRow
	err := db.WithContext(ctx).Raw(
		`SELECT quantity, rate FROM sales WHERE customer_id = ?`,
		customerID,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sumSales(rows), nil
}

// TotalPayments sums every payment amount the customer has.
func TotalPayments(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (decimal.Decimal, error) {
	var rows []amountRow
	err := db.WithContext(ctx).Raw(
		`SELECT amount FROM payments WHERE customer_id = ?`,
		customerID,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sumAmounts(rows), nil
}
