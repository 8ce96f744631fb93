package payment

import (
	"github.com/milkledger/milkledger/internal/payment/repository"
	"github.com/milkledger/milkledger/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
