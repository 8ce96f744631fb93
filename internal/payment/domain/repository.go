package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPaymentFilter struct {
	CustomerID snowflake.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListPaymentFilter, page pagination.Pagination) ([]*Payment, error)

	FindAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]*PaymentAllocation, error)
	InsertAllocations(ctx context.Context, db *gorm.DB, allocations []*PaymentAllocation) error
	DeleteAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) error
}
