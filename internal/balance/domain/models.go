package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// MonthlyBalance is the materialized ledger row for one customer-month.
// It is derived entirely from sales, payments and payment allocations and is
// safe to recompute at any time.
type MonthlyBalance struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	CustomerID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_monthly_balances_customer_month,priority:1" json:"customer_id"`
	Year           int             `gorm:"not null;uniqueIndex:ux_monthly_balances_customer_month,priority:2" json:"year"`
	Month          int             `gorm:"not null;uniqueIndex:ux_monthly_balances_customer_month,priority:3" json:"month"`
	SalesAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"sales_amount"`
	PaymentAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"payment_amount"`
	IsPaid         bool            `gorm:"not null;default:false" json:"is_paid"`
	RecalculatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"recalculated_at"`
}

// TableName sets the database table name.
func (MonthlyBalance) TableName() string { return "monthly_balances" }
