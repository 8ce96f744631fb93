package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Sale is one billable milk delivery: quantity liters at a per-liter rate on
// a given date. The amount is always quantity*rate, never stored separately.
type Sale struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID    `gorm:"not null;index:ix_sales_customer_date,priority:1" json:"customer_id"`
	MilkTypeID *snowflake.ID   `gorm:"index" json:"milk_type_id,omitempty"`
	Date       time.Time       `gorm:"type:date;not null;index:ix_sales_customer_date,priority:2" json:"date"`
	Quantity   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	Rate       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rate"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Sale) TableName() string { return "sales" }

// TotalAmount is the billed value of this delivery.
func (s Sale) TotalAmount() decimal.Decimal {
	return s.Quantity.Mul(s.Rate)
}
