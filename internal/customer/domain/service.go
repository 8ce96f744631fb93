package domain

import (
	"context"
	"errors"

	"github.com/milkledger/milkledger/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type ListCustomerRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Phone     string
}

type ListCustomerFilter struct {
	Name  string
	Phone string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name       string
	Address    string
	Phone      string
	MilkTypeID string
}

type GetCustomerRequest struct {
	ID string
}

// Balance is the customer's all-time outstanding amount: total sales minus
// total payments, regardless of month attribution.
type Balance struct {
	CustomerID    string          `json:"customer_id"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	GetBalance(context.Context, GetCustomerRequest) (Balance, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidMilkType = errors.New("invalid_milk_type")
	ErrNotFound        = errors.New("not_found")
)
