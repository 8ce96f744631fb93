package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	balancedomain "github.com/milkledger/milkledger/internal/balance/domain"
	customerdomain "github.com/milkledger/milkledger/internal/customer/domain"
	"github.com/milkledger/milkledger/internal/payment/domain"
	"github.com/milkledger/milkledger/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	BalanceSvc   balancedomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	customerRepo customerdomain.Repository
	balanceSvc   balancedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		balanceSvc:   p.BalanceSvc,
	}
}

type monthKey struct {
	year  int
	month int
}

func (s *Service) Record(ctx context.Context, req domain.RecordPaymentRequest) (domain.Payment, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidCustomer
	}
	if !req.Amount.IsPositive() {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	if req.Date.IsZero() {
		return domain.Payment{}, domain.ErrInvalidDate
	}
	if (req.TargetMonth == nil) != (req.TargetYear == nil) {
		return domain.Payment{}, domain.ErrInvalidMonth
	}
	if req.TargetMonth != nil {
		if *req.TargetMonth < 1 || *req.TargetMonth > 12 {
			return domain.Payment{}, domain.ErrInvalidMonth
		}
		if *req.TargetYear <= 0 {
			return domain.Payment{}, domain.ErrInvalidYear
		}
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Payment{}, err
	}
	if customer == nil {
		return domain.Payment{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:          s.genID.Generate(),
		CustomerID:  customerID,
		Date:        req.Date.UTC(),
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		TargetMonth: req.TargetMonth,
		TargetYear:  req.TargetYear,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		year, month := attributionMonth(&payment)
		_, err := s.balanceSvc.RecalculateIn(ctx, tx, customerID, year, month)
		return err
	})
	if err != nil {
		return domain.Payment{}, err
	}

	return payment, nil
}

func (s *Service) Distribute(ctx context.Context, req domain.DistributeRequest) ([]domain.PaymentAllocation, error) {
	paymentID, err := parseID(req.PaymentID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}

	allocations := req.Allocations
	if len(allocations) == 0 && payment.TargetMonth != nil && payment.TargetYear != nil {
		// A simple single-month payment is represented the same way as a
		// split one: a single allocation covering the full amount.
		allocations = []domain.MonthAllocation{{
			Month:  *payment.TargetMonth,
			Year:   *payment.TargetYear,
			Amount: payment.Amount,
		}}
	}

	// All validation happens before any write.
	total := decimal.Zero
	seen := make(map[monthKey]bool, len(allocations))
	for _, allocation := range allocations {
		if allocation.Month < 1 || allocation.Month > 12 {
			return nil, domain.ErrInvalidMonth
		}
		if allocation.Year <= 0 {
			return nil, domain.ErrInvalidYear
		}
		if !allocation.Amount.IsPositive() {
			return nil, domain.ErrInvalidAllocation
		}
		key := monthKey{year: allocation.Year, month: allocation.Month}
		if seen[key] {
			return nil, domain.ErrDuplicateAllocationMonth
		}
		seen[key] = true
		total = total.Add(allocation.Amount)
	}
	if total.GreaterThan(payment.Amount) {
		return nil, domain.ErrAllocationExceedsPayment
	}

	var created []domain.PaymentAllocation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindAllocations(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		touched := make(map[monthKey]bool)
		for _, allocation := range existing {
			touched[monthKey{year: allocation.Year, month: allocation.Month}] = true
		}
		for _, allocation := range allocations {
			touched[monthKey{year: allocation.Year, month: allocation.Month}] = true
		}
		// The payment's own attribution month can flip between the direct
		// target, its date month and the allocation set, so recompute it too.
		year, month := attributionMonth(payment)
		touched[monthKey{year: year, month: month}] = true

		if err := s.repo.DeleteAllocations(ctx, tx, paymentID); err != nil {
			return err
		}

		now := time.Now().UTC()
		rows := make([]*domain.PaymentAllocation, 0, len(allocations))
		for _, allocation := range allocations {
			rows = append(rows, &domain.PaymentAllocation{
				ID:        s.genID.Generate(),
				PaymentID: paymentID,
				Year:      allocation.Year,
				Month:     allocation.Month,
				Amount:    allocation.Amount,
				CreatedAt: now,
			})
		}
		if err := s.repo.InsertAllocations(ctx, tx, rows); err != nil {
			return err
		}

		for key := range touched {
			if _, err := s.balanceSvc.RecalculateIn(ctx, tx, payment.CustomerID, key.year, key.month); err != nil {
				return err
			}
		}

		created = make([]domain.PaymentAllocation, 0, len(rows))
		for _, row := range rows {
			created = append(created, *row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeletePaymentRequest) error {
	paymentID, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return domain.ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindAllocations(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		touched := make(map[monthKey]bool)
		for _, allocation := range existing {
			touched[monthKey{year: allocation.Year, month: allocation.Month}] = true
		}
		year, month := attributionMonth(payment)
		touched[monthKey{year: year, month: month}] = true

		if err := s.repo.DeleteAllocations(ctx, tx, paymentID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, paymentID); err != nil {
			return err
		}

		// Months the payment used to cover go back to unpaid when their
		// sales still exceed the remaining payments.
		for key := range touched {
			if _, err := s.balanceSvc.RecalculateIn(ctx, tx, payment.CustomerID, key.year, key.month); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPaymentRequest) (domain.Payment, error) {
	paymentID, err := parseID(req.ID)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *payment, nil
}

func (s *Service) Allocations(ctx context.Context, req domain.GetPaymentRequest) ([]domain.PaymentAllocation, error) {
	paymentID, err := parseID(req.ID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	rows, err := s.repo.FindAllocations(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}

	allocations := make([]domain.PaymentAllocation, 0, len(rows))
	for _, row := range rows {
		allocations = append(allocations, *row)
	}
	return allocations, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	filter := domain.ListPaymentFilter{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}
	if req.CustomerID != "" {
		customerID, err := parseID(req.CustomerID)
		if err != nil {
			return domain.ListPaymentResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListPaymentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(payment *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:   payment.ID.String(),
			Date: payment.Date.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}

	resp := domain.ListPaymentResponse{Payments: payments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// attributionMonth returns the month a payment counts toward when it has no
// allocation rows: its direct target if set, otherwise its date month.
func attributionMonth(payment *domain.Payment) (int, int) {
	if payment.TargetMonth != nil && payment.TargetYear != nil {
		return *payment.TargetYear, *payment.TargetMonth
	}
	date := payment.Date.UTC()
	return date.Year(), int(date.Month())
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
