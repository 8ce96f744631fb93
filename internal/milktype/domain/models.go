package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// MilkType is a product variant (e.g. Cow, Buffalo) with its delivery rate.
type MilkType struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	RatePerLiter decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rate_per_liter"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MilkType) TableName() string { return "milk_types" }
