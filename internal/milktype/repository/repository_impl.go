package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/milktype/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, milkType *domain.MilkType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO milk_types (id, name, rate_per_liter, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		milkType.ID,
		milkType.Name,
		milkType.RatePerLiter,
		milkType.CreatedAt,
		milkType.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MilkType, error) {
	var milkType domain.MilkType
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, rate_per_liter, created_at, updated_at
		 FROM milk_types WHERE id = ?`,
		id,
	).Scan(&milkType).Error
	if err != nil {
		return nil, err
	}
	if milkType.ID == 0 {
		return nil, nil
	}
	return &milkType, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.MilkType, error) {
	var milkTypes []*domain.MilkType
	err := db.WithContext(ctx).
		Model(&domain.MilkType{}).
		Order("name asc").
		Find(&milkTypes).Error
	if err != nil {
		return nil, err
	}
	return milkTypes, nil
}

func (r *repo) UpdateRate(ctx context.Context, db *gorm.DB, milkType *domain.MilkType) error {
	return db.WithContext(ctx).Exec(
		`UPDATE milk_types SET rate_per_liter = ?, updated_at = ? WHERE id = ?`,
		milkType.RatePerLiter,
		milkType.UpdatedAt,
		milkType.ID,
	).Error
}
