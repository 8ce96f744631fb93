package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/sale/domain"
	"github.com/milkledger/milkledger/pkg/db/option"
	"github.com/milkledger/milkledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (id, customer_id, milk_type_id, date, quantity, rate, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.CustomerID,
		sale.MilkTypeID,
		sale.Date,
		sale.Quantity,
		sale.Rate,
		sale.Notes,
		sale.CreatedAt,
		sale.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, milk_type_id, date, quantity, rate, notes, created_at, updated_at
		 FROM sales WHERE id = ?`,
		id,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sales SET date = ?, quantity = ?, rate = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		sale.Date,
		sale.Quantity,
		sale.Rate,
		sale.Notes,
		sale.UpdatedAt,
		sale.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM sales WHERE id = ?`,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSaleFilter, page pagination.Pagination) ([]*domain.Sale, error) {
	var sales []*domain.Sale
	stmt := db.WithContext(ctx).
		Model(&domain.Sale{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("date <= ?", *filter.DateTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("date desc, id desc").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}
