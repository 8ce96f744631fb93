package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/balance/aggregate"
	balancedomain "github.com/milkledger/milkledger/internal/balance/domain"
	"github.com/milkledger/milkledger/internal/clock"
	saledomain "github.com/milkledger/milkledger/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) balancedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("balance.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Recalculate(ctx context.Context, customerID snowflake.ID, year, month int) (balancedomain.MonthSnapshot, error) {
	return s.RecalculateIn(ctx, s.db, customerID, year, month)
}

func (s *Service) RecalculateIn(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, year, month int) (balancedomain.MonthSnapshot, error) {
	if customerID == 0 {
		return balancedomain.MonthSnapshot{}, balancedomain.ErrInvalidCustomer
	}
	if year <= 0 {
		return balancedomain.MonthSnapshot{}, balancedomain.ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return balancedomain.MonthSnapshot{}, balancedomain.ErrInvalidMonth
	}

	exists, err := s.customerExists(ctx, tx, customerID)
	if err != nil {
		return balancedomain.MonthSnapshot{}, err
	}
	if !exists {
		return balancedomain.MonthSnapshot{}, balancedomain.ErrCustomerNotFound
	}

	var snapshot balancedomain.MonthSnapshot
	err = tx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		sales, err := aggregate.SalesForMonth(ctx, inner, customerID, year, month)
		if err != nil {
			return err
		}
		payments, err := aggregate.PaymentsForMonth(ctx, inner, customerID, year, month)
		if err != nil {
			return err
		}

		isPaid := payments.GreaterThanOrEqual(sales)
		now := s.clock.Now()

		if err := inner.WithContext(ctx).Exec(
			`INSERT INTO monthly_balances (
				id, customer_id, year, month, sales_amount, payment_amount, is_paid, recalculated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (customer_id, year, month) DO UPDATE SET
				sales_amount = excluded.sales_amount,
				payment_amount = excluded.payment_amount,
				is_paid = excluded.is_paid,
				recalculated_at = excluded.recalculated_at`,
			s.genID.Generate(),
			customerID,
			year,
			month,
			sales,
			payments,
			isPaid,
			now,
		).Error; err != nil {
			return err
		}

		snapshot = balancedomain.MonthSnapshot{
			Year:          year,
			Month:         month,
			SalesAmount:   sales,
			PaymentAmount: payments,
			Balance:       sales.Sub(payments),
			IsPaid:        isPaid,
		}
		return nil
	})
	if err != nil {
		return balancedomain.MonthSnapshot{}, err
	}

	return snapshot, nil
}

func (s *Service) SweepAll(ctx context.Context, customerID snowflake.ID) ([]balancedomain.MonthSnapshot, error) {
	if customerID == 0 {
		return nil, balancedomain.ErrInvalidCustomer
	}

	first, last, err := s.saleBounds(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return []balancedomain.MonthSnapshot{}, nil
	}

	results := make([]balancedomain.MonthSnapshot, 0)
	year, month := first.Year(), int(first.Month())
	lastYear, lastMonth := last.Year(), int(last.Month())

	// One recompute per month keeps memory flat over arbitrarily long
	// histories; each month is its own transaction and checkpoint.
	for year < lastYear || (year == lastYear && month <= lastMonth) {
		snapshot, err := s.Recalculate(ctx, customerID, year, month)
		if err != nil {
			return nil, err
		}
		results = append(results, snapshot)

		month++
		if month > 12 {
			month = 1
			year++
		}
	}

	return results, nil
}

func (s *Service) UnpaidMonths(ctx context.Context, customerID snowflake.ID, order balancedomain.Order) ([]balancedomain.UnpaidMonth, error) {
	// Read-through: sweep first so the result reflects the latest writes.
	if _, err := s.SweepAll(ctx, customerID); err != nil {
		return nil, err
	}

	direction := "year asc, month asc"
	if order == balancedomain.OrderNewestFirst {
		direction = "year desc, month desc"
	}

	var rows []*balancedomain.MonthlyBalance
	err := s.db.WithContext(ctx).
		Model(&balancedomain.MonthlyBalance{}).
		Where("customer_id = ? AND is_paid = ? AND sales_amount > 0", customerID, false).
		Order(direction).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	unpaid := make([]balancedomain.UnpaidMonth, 0, len(rows))
	for _, row := range rows {
		unpaid = append(unpaid, balancedomain.UnpaidMonth{
			Year:          row.Year,
			Month:         row.Month,
			SalesAmount:   row.SalesAmount,
			PaymentAmount: row.PaymentAmount,
			Remaining:     row.SalesAmount.Sub(row.PaymentAmount),
		})
	}
	return unpaid, nil
}

func (s *Service) customerExists(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM customers WHERE id = ?`,
		customerID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) saleBounds(ctx context.Context, customerID snowflake.ID) (*time.Time, *time.Time, error) {
	var first saledomain.Sale
	err := s.db.WithContext(ctx).
		Model(&saledomain.Sale{}).
		Where("customer_id = ?", customerID).
		Order("date asc, id asc").
		First(&first).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var last saledomain.Sale
	err = s.db.WithContext(ctx).
		Model(&saledomain.Sale{}).
		Where("customer_id = ?", customerID).
		Order("date desc, id desc").
		First(&last).Error
	if err != nil {
		return nil, nil, err
	}

	firstDate := first.Date.UTC()
	lastDate := last.Date.UTC()
	return &firstDate, &lastDate, nil
}
