package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MonthBalance is the live view of one customer-month, computed from first
// principles rather than the materialized table.
type MonthBalance struct {
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	SalesTotal      decimal.Decimal `json:"sales_total"`
	PaymentTotal    decimal.Decimal `json:"payment_total"`
	MonthBalance    decimal.Decimal `json:"month_balance"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	TotalBalance    decimal.Decimal `json:"total_balance"`
}

type MilkTypeSlice struct {
	MilkTypeID string          `json:"milk_type_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
}

// DashboardSummary powers the landing screen: today's delivery volume and
// value, month-to-date sales and payments, and today's per-type breakdown.
type DashboardSummary struct {
	Date              time.Time       `json:"date"`
	TodayQuantity     decimal.Decimal `json:"today_quantity"`
	TodayAmount       decimal.Decimal `json:"today_amount"`
	MonthSales        decimal.Decimal `json:"month_sales"`
	MonthPayments     decimal.Decimal `json:"month_payments"`
	MilkTypeBreakdown []MilkTypeSlice `json:"milk_type_breakdown"`
}

type MonthlyReportRow struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Quantity decimal.Decimal `json:"quantity"`
	Sales    decimal.Decimal `json:"sales"`
	Payments decimal.Decimal `json:"payments"`
	Balance  decimal.Decimal `json:"balance"`
}

// MonthlyReport is the per-month rollup over a date range, newest first.
type MonthlyReport struct {
	Rows          []MonthlyReportRow `json:"rows"`
	TotalQuantity decimal.Decimal    `json:"total_quantity"`
	TotalSales    decimal.Decimal    `json:"total_sales"`
	TotalPayments decimal.Decimal    `json:"total_payments"`
	TotalBalance  decimal.Decimal    `json:"total_balance"`
}

type CustomerBalanceRow struct {
	CustomerID    string          `json:"customer_id"`
	Name          string          `json:"name"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

type MonthBalanceRequest struct {
	CustomerID string
	Year       int
	Month      int
}

type MonthlyReportRequest struct {
	StartDate time.Time
	EndDate   time.Time
}

type Service interface {
	// MonthBalance serves live UI queries without forcing a sweep of the
	// materialized table. It must agree with the materialized rows; a
	// disagreement is logged, never fatal.
	MonthBalance(context.Context, MonthBalanceRequest) (MonthBalance, error)

	DashboardSummary(ctx context.Context, date time.Time) (DashboardSummary, error)
	MonthlyReport(context.Context, MonthlyReportRequest) (MonthlyReport, error)
	CustomerBalanceReport(ctx context.Context) ([]CustomerBalanceRow, error)
}

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidYear     = errors.New("invalid_year")
	ErrInvalidMonth    = errors.New("invalid_month")
	ErrInvalidRange    = errors.New("invalid_range")
	ErrNotFound        = errors.New("not_found")
)
