package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/payment/domain"
	"github.com/milkledger/milkledger/pkg/db/option"
	"github.com/milkledger/milkledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, customer_id, date, amount, description, target_month, target_year, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.CustomerID,
		payment.Date,
		payment.Amount,
		payment.Description,
		payment.TargetMonth,
		payment.TargetYear,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, date, amount, description, target_month, target_year, created_at, updated_at
		 FROM payments WHERE id = ?`,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE id = ?`,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPaymentFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	stmt := db.WithContext(ctx).
		Model(&domain.Payment{})
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
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) FindAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]*domain.PaymentAllocation, error) {
	var allocations []*domain.PaymentAllocation
	err := db.WithContext(ctx).
		Model(&domain.PaymentAllocation{}).
		Where("payment_id = ?", paymentID).
		Order("year asc, month asc").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repo) InsertAllocations(ctx context.Context, db *gorm.DB, allocations []*domain.PaymentAllocation) error {
	for _, allocation := range allocations {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO payment_allocations (id, payment_id, year, month, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			allocation.ID,
			allocation.PaymentID,
			allocation.Year,
			allocation.Month,
			allocation.Amount,
			allocation.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM payment_allocations WHERE payment_id = ?`,
		paymentID,
	).Error
}
