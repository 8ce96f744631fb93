package domain

import (
	"context"
	"errors"
	"time"

	"github.com/milkledger/milkledger/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type RecordSaleRequest struct {
	CustomerID string
	MilkTypeID string
	Date       time.Time
	Quantity   decimal.Decimal
	// Rate may be zero; the service then resolves it from the customer's
	// milk type. This replaces the hidden save-time fallback of the old
	// system with an explicit resolution step.
	Rate  decimal.Decimal
	Notes string
}

type UpdateSaleRequest struct {
	ID       string
	Date     *time.Time
	Quantity *decimal.Decimal
	Rate     *decimal.Decimal
	Notes    *string
}

type DeleteSaleRequest struct {
	ID string
}

type GetSaleRequest struct {
	ID string
}

type ListSaleRequest struct {
	CustomerID string
	DateFrom   *time.Time
	DateTo     *time.Time
	PageToken  string
	PageSize   int
}

type ListSaleResponse struct {
	pagination.PageInfo
	Sales []Sale `json:"sales"`
}

type Service interface {
	Record(context.Context, RecordSaleRequest) (Sale, error)
	Update(context.Context, UpdateSaleRequest) (Sale, error)
	Delete(context.Context, DeleteSaleRequest) error
	GetByID(context.Context, GetSaleRequest) (Sale, error)
	List(context.Context, ListSaleRequest) (ListSaleResponse, error)
}

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNoRateSource    = errors.New("no_rate_source")
	ErrNotFound        = errors.New("not_found")
)
