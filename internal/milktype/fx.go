package milktype

import (
	"github.com/milkledger/milkledger/internal/milktype/repository"
	"github.com/milkledger/milkledger/internal/milktype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("milktype.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
