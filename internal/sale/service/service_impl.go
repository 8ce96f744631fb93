package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	balancedomain "github.com/milkledger/milkledger/internal/balance/domain"
	customerdomain "github.com/milkledger/milkledger/internal/customer/domain"
	milktypedomain "github.com/milkledger/milkledger/internal/milktype/domain"
	"github.com/milkledger/milkledger/internal/sale/domain"
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
	MilkTypeRepo milktypedomain.Repository
	BalanceSvc   balancedomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	customerRepo customerdomain.Repository
	milkTypeRepo milktypedomain.Repository
	balanceSvc   balancedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sale.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		milkTypeRepo: p.MilkTypeRepo,
		balanceSvc:   p.BalanceSvc,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordSaleRequest) (domain.Sale, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.Sale{}, domain.ErrInvalidCustomer
	}
	if !req.Quantity.IsPositive() {
		return domain.Sale{}, domain.ErrInvalidQuantity
	}
	if req.Date.IsZero() {
		return domain.Sale{}, domain.ErrInvalidDate
	}
	if req.Rate.IsNegative() {
		return domain.Sale{}, domain.ErrInvalidRate
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Sale{}, err
	}
	if customer == nil {
		return domain.Sale{}, domain.ErrNotFound
	}

	var milkTypeID *snowflake.ID
	if strings.TrimSpace(req.MilkTypeID) != "" {
		id, err := parseID(req.MilkTypeID)
		if err != nil {
			return domain.Sale{}, domain.ErrInvalidID
		}
		milkTypeID = &id
	} else {
		milkTypeID = customer.MilkTypeID
	}

	rate := req.Rate
	if rate.IsZero() {
		rate, err = s.resolveRate(ctx, milkTypeID)
		if err != nil {
			return domain.Sale{}, err
		}
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:         s.genID.Generate(),
		CustomerID: customerID,
		MilkTypeID: milkTypeID,
		Date:       req.Date.UTC(),
		Quantity:   req.Quantity,
		Rate:       rate,
		Notes:      strings.TrimSpace(req.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &sale); err != nil {
			return err
		}
		_, err := s.balanceSvc.RecalculateIn(ctx, tx, customerID, sale.Date.Year(), int(sale.Date.Month()))
		return err
	})
	if err != nil {
		return domain.Sale{}, err
	}

	return sale, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSaleRequest) (domain.Sale, error) {
	saleID, err := parseID(req.ID)
	if err != nil {
		return domain.Sale{}, domain.ErrInvalidID
	}

	sale, err := s.repo.FindByID(ctx, s.db, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale == nil {
		return domain.Sale{}, domain.ErrNotFound
	}

	oldYear, oldMonth := sale.Date.UTC().Year(), int(sale.Date.UTC().Month())

	if req.Date != nil {
		if req.Date.IsZero() {
			return domain.Sale{}, domain.ErrInvalidDate
		}
		sale.Date = req.Date.UTC()
	}
	if req.Quantity != nil {
		if !req.Quantity.IsPositive() {
			return domain.Sale{}, domain.ErrInvalidQuantity
		}
		sale.Quantity = *req.Quantity
	}
	if req.Rate != nil {
		if !req.Rate.IsPositive() {
			return domain.Sale{}, domain.ErrInvalidRate
		}
		sale.Rate = *req.Rate
	}
	if req.Notes != nil {
		sale.Notes = strings.TrimSpace(*req.Notes)
	}
	sale.UpdatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, sale); err != nil {
			return err
		}
		// Moving a sale across a month boundary affects both months.
		newYear, newMonth := sale.Date.Year(), int(sale.Date.Month())
		if _, err := s.balanceSvc.RecalculateIn(ctx, tx, sale.CustomerID, oldYear, oldMonth); err != nil {
			return err
		}
		if newYear != oldYear || newMonth != oldMonth {
			if _, err := s.balanceSvc.RecalculateIn(ctx, tx, sale.CustomerID, newYear, newMonth); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	return *sale, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteSaleRequest) error {
	saleID, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	sale, err := s.repo.FindByID(ctx, s.db, saleID)
	if err != nil {
		return err
	}
	if sale == nil {
		return domain.ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Delete(ctx, tx, saleID); err != nil {
			return err
		}
		date := sale.Date.UTC()
		_, err := s.balanceSvc.RecalculateIn(ctx, tx, sale.CustomerID, date.Year(), int(date.Month()))
		return err
	})
}

func (s *Service) GetByID(ctx context.Context, req domain.GetSaleRequest) (domain.Sale, error) {
	saleID, err := parseID(req.ID)
	if err != nil {
		return domain.Sale{}, domain.ErrInvalidID
	}

	sale, err := s.repo.FindByID(ctx, s.db, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale == nil {
		return domain.Sale{}, domain.ErrNotFound
	}
	return *sale, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSaleRequest) (domain.ListSaleResponse, error) {
	filter := domain.ListSaleFilter{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}
	if req.CustomerID != "" {
		customerID, err := parseID(req.CustomerID)
		if err != nil {
			return domain.ListSaleResponse{}, domain.ErrInvalidCustomer
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
		return domain.ListSaleResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(sale *domain.Sale) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:   sale.ID.String(),
			Date: sale.Date.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	sales := make([]domain.Sale, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		sales = append(sales, *item)
	}

	resp := domain.ListSaleResponse{Sales: sales}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// resolveRate looks up the per-liter rate from the milk type. It is the
// explicit replacement for the old save-time rate fallback.
func (s *Service) resolveRate(ctx context.Context, milkTypeID *snowflake.ID) (decimal.Decimal, error) {
	if milkTypeID == nil {
		return decimal.Zero, domain.ErrNoRateSource
	}
	milkType, err := s.milkTypeRepo.FindByID(ctx, s.db, *milkTypeID)
	if err != nil {
		return decimal.Zero, err
	}
	if milkType == nil {
		return decimal.Zero, domain.ErrNoRateSource
	}
	return milkType.RatePerLiter, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
