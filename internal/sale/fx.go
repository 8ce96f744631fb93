package sale

import (
	"github.com/milkledger/milkledger/internal/sale/repository"
	"github.com/milkledger/milkledger/internal/sale/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sale.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
