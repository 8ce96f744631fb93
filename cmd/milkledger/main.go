package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/balance"
	"github.com/milkledger/milkledger/internal/clock"
	"github.com/milkledger/milkledger/internal/config"
	"github.com/milkledger/milkledger/internal/customer"
	"github.com/milkledger/milkledger/internal/logger"
	"github.com/milkledger/milkledger/internal/migration"
	"github.com/milkledger/milkledger/internal/milktype"
	"github.com/milkledger/milkledger/internal/payment"
	"github.com/milkledger/milkledger/internal/sale"
	"github.com/milkledger/milkledger/internal/statement"
	"github.com/milkledger/milkledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		milktype.Module,
		customer.Module,
		sale.Module,
		payment.Module,
		balance.Module,
		statement.Module,

		fx.Invoke(func(log *zap.Logger, cfg config.Config) {
			log.Info("milkledger ready",
				zap.String("service", cfg.AppName),
				zap.String("version", cfg.AppVersion),
				zap.String("environment", cfg.Environment),
			)
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
