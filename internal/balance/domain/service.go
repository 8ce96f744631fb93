package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthSnapshot is the result of recalculating one customer-month.
type MonthSnapshot struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	SalesAmount   decimal.Decimal `json:"sales_amount"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	Balance       decimal.Decimal `json:"balance"`
	IsPaid        bool            `json:"is_paid"`
}

// UnpaidMonth is a month with recorded sales not yet fully covered by payments.
type UnpaidMonth struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	SalesAmount   decimal.Decimal `json:"sales_amount"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	Remaining     decimal.Decimal `json:"remaining"`
}

// Order controls how unpaid months are returned. Allocation wants the oldest
// debt first; display screens usually want the newest month first.
type Order string

const (
	OrderOldestFirst Order = "oldest_first"
	OrderNewestFirst Order = "newest_first"
)

type Service interface {
	// Recalculate derives and persists the balance row for one customer-month.
	// It is idempotent: repeated calls with unchanged inputs write the same row.
	Recalculate(ctx context.Context, customerID snowflake.ID, year, month int) (MonthSnapshot, error)

	// RecalculateIn is Recalculate running inside the caller's transaction, so
	// allocation rewrites and the recomputes they trigger commit atomically.
	RecalculateIn(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, year, month int) (MonthSnapshot, error)

	// SweepAll recalculates every month between the customer's earliest and
	// latest sale, inclusive, in chronological order.
	SweepAll(ctx context.Context, customerID snowflake.ID) ([]MonthSnapshot, error)

	// UnpaidMonths sweeps first, then returns months with outstanding balance.
	UnpaidMonths(ctx context.Context, customerID snowflake.ID, order Order) ([]UnpaidMonth, error)
}

var (
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvalidYear      = errors.New("invalid_year")
	ErrInvalidMonth     = errors.New("invalid_month")
	ErrCustomerNotFound = errors.New("customer_not_found")
)
