package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/balance/aggregate"
	"github.com/milkledger/milkledger/internal/customer/domain"
	milktypedomain "github.com/milkledger/milkledger/internal/milktype/domain"
	"github.com/milkledger/milkledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	MilkTypeRepo milktypedomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	milkTypeRepo milktypedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("customer.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		milkTypeRepo: p.MilkTypeRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	var milkTypeID *snowflake.ID
	if strings.TrimSpace(req.MilkTypeID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.MilkTypeID))
		if err != nil || id == 0 {
			return domain.Customer{}, domain.ErrInvalidMilkType
		}
		milkType, err := s.milkTypeRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return domain.Customer{}, err
		}
		if milkType == nil {
			return domain.Customer{}, domain.ErrInvalidMilkType
		}
		milkTypeID = &id
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:         s.genID.Generate(),
		Name:       name,
		Address:    strings.TrimSpace(req.Address),
		Phone:      strings.TrimSpace(req.Phone),
		MilkTypeID: milkTypeID,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
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
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID: customer.ID.String(),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) GetBalance(ctx context.Context, req domain.GetCustomerRequest) (domain.Balance, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Balance{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Balance{}, err
	}
	if item == nil {
		return domain.Balance{}, domain.ErrNotFound
	}

	totalSales, err := aggregate.TotalSales(ctx, s.db, id)
	if err != nil {
		return domain.Balance{}, err
	}
	totalPayments, err := aggregate.TotalPayments(ctx, s.db, id)
	if err != nil {
		return domain.Balance{}, err
	}

	return domain.Balance{
		CustomerID:    id.String(),
		TotalSales:    totalSales,
		TotalPayments: totalPayments,
		Outstanding:   totalSales.Sub(totalPayments),
	}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
