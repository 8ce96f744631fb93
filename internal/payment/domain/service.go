package domain

import (
	"context"
	"errors"
	"time"

	"github.com/milkledger/milkledger/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// MonthAllocation is one requested slice of a payment.
type MonthAllocation struct {
	Month  int             `json:"month"`
	Year   int             `json:"year"`
	Amount decimal.Decimal `json:"amount"`
}

type RecordPaymentRequest struct {
	CustomerID  string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	TargetMonth *int
	TargetYear  *int
}

type DistributeRequest struct {
	PaymentID   string
	Allocations []MonthAllocation
}

type DeletePaymentRequest struct {
	ID string
}

type GetPaymentRequest struct {
	ID string
}

type ListPaymentRequest struct {
	CustomerID string
	DateFrom   *time.Time
	DateTo     *time.Time
	PageToken  string
	PageSize   int
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type Service interface {
	Record(context.Context, RecordPaymentRequest) (Payment, error)

	// Distribute atomically replaces the payment's allocation set and
	// recalculates every month the old and new sets touch.
	Distribute(context.Context, DistributeRequest) ([]PaymentAllocation, error)

	Delete(context.Context, DeletePaymentRequest) error
	GetByID(context.Context, GetPaymentRequest) (Payment, error)
	Allocations(context.Context, GetPaymentRequest) ([]PaymentAllocation, error)
	List(context.Context, ListPaymentRequest) (ListPaymentResponse, error)
}

var (
	ErrInvalidCustomer          = errors.New("invalid_customer")
	ErrInvalidAmount            = errors.New("invalid_amount")
	ErrInvalidDate              = errors.New("invalid_date")
	ErrInvalidID                = errors.New("invalid_id")
	ErrInvalidMonth             = errors.New("invalid_month")
	ErrInvalidYear              = errors.New("invalid_year")
	ErrInvalidAllocation        = errors.New("invalid_allocation")
	ErrDuplicateAllocationMonth = errors.New("duplicate_allocation_month")
	ErrAllocationExceedsPayment = errors.New("allocated amount exceeds payment amount")
	ErrNotFound                 = errors.New("not_found")
)
