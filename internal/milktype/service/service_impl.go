package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/milktype/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("milktype.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMilkTypeRequest) (domain.MilkType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.MilkType{}, domain.ErrInvalidName
	}
	if !req.RatePerLiter.IsPositive() {
		return domain.MilkType{}, domain.ErrInvalidRate
	}

	now := time.Now().UTC()
	milkType := domain.MilkType{
		ID:           s.genID.Generate(),
		Name:         name,
		RatePerLiter: req.RatePerLiter,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &milkType); err != nil {
		return domain.MilkType{}, err
	}

	return milkType, nil
}

func (s *Service) List(ctx context.Context) ([]domain.MilkType, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	milkTypes := make([]domain.MilkType, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		milkTypes = append(milkTypes, *item)
	}
	return milkTypes, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetMilkTypeRequest) (domain.MilkType, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.MilkType{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.MilkType{}, err
	}
	if item == nil {
		return domain.MilkType{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) UpdateRate(ctx context.Context, req domain.UpdateRateRequest) (domain.MilkType, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.MilkType{}, err
	}
	if !req.RatePerLiter.IsPositive() {
		return domain.MilkType{}, domain.ErrInvalidRate
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.MilkType{}, err
	}
	if item == nil {
		return domain.MilkType{}, domain.ErrNotFound
	}

	item.RatePerLiter = req.RatePerLiter
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateRate(ctx, s.db, item); err != nil {
		return domain.MilkType{}, err
	}

	return *item, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
