package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListSaleFilter struct {
	CustomerID snowflake.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	Update(ctx context.Context, db *gorm.DB, sale *Sale) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListSaleFilter, page pagination.Pagination) ([]*Sale, error)
}
