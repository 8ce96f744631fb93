package customer

import (
	"github.com/milkledger/milkledger/internal/customer/repository"
	"github.com/milkledger/milkledger/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
