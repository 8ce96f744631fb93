package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is money received from a customer. A payment may carry a direct
// (month, year) target, or be split across months via PaymentAllocation rows.
// When allocation rows exist they are the only representation that counts.
type Payment struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	CustomerID  snowflake.ID    `gorm:"not null;index:ix_payments_customer_date,priority:1" json:"customer_id"`
	Date        time.Time       `gorm:"type:date;not null;index:ix_payments_customer_date,priority:2" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	TargetMonth *int            `gorm:"index:ix_payments_customer_target,priority:3" json:"target_month,omitempty"`
	TargetYear  *int            `gorm:"index:ix_payments_customer_target,priority:2" json:"target_year,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// PaymentAllocation earmarks part of a payment for one customer-month.
// At most one allocation may exist per (payment, year, month).
type PaymentAllocation struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	PaymentID snowflake.ID    `gorm:"not null;uniqueIndex:ux_payment_allocations_payment_month,priority:1" json:"payment_id"`
	Year      int             `gorm:"not null;uniqueIndex:ux_payment_allocations_payment_month,priority:2" json:"year"`
	Month     int             `gorm:"not null;uniqueIndex:ux_payment_allocations_payment_month,priority:3" json:"month"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentAllocation) TableName() string { return "payment_allocations" }
