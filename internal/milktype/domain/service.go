package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateMilkTypeRequest struct {
	Name         string
	RatePerLiter decimal.Decimal
}

type UpdateRateRequest struct {
	ID           string
	RatePerLiter decimal.Decimal
}

type GetMilkTypeRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateMilkTypeRequest) (MilkType, error)
	List(context.Context) ([]MilkType, error)
	GetByID(context.Context, GetMilkTypeRequest) (MilkType, error)
	UpdateRate(context.Context, UpdateRateRequest) (MilkType, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidRate = errors.New("invalid_rate")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
