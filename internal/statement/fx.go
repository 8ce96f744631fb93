package statement

import (
	"github.com/milkledger/milkledger/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(service.New),
)
