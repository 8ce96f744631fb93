package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, milkType *MilkType) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MilkType, error)
	List(ctx context.Context, db *gorm.DB) ([]*MilkType, error)
	UpdateRate(ctx context.Context, db *gorm.DB, milkType *MilkType) error
}
