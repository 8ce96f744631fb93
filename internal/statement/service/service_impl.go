package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/milkledger/milkledger/internal/balance/aggregate"
	balancedomain "github.com/milkledger/milkledger/internal/balance/domain"
	customerdomain "github.com/milkledger/milkledger/internal/customer/domain"
	"github.com/milkledger/milkledger/internal/statement/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	CustomerRepo customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	customerRepo customerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("statement.service"),
		customerRepo: p.CustomerRepo,
	}
}

func (s *Service) MonthBalance(ctx context.Context, req domain.MonthBalanceRequest) (domain.MonthBalance, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.MonthBalance{}, domain.ErrInvalidCustomer
	}
	if req.Year <= 0 {
		return domain.MonthBalance{}, domain.ErrInvalidYear
	}
	if req.Month < 1 || req.Month > 12 {
		return domain.MonthBalance{}, domain.ErrInvalidMonth
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.MonthBalance{}, err
	}
	if customer == nil {
		return domain.MonthBalance{}, domain.ErrNotFound
	}

	salesTotal, err := aggregate.SalesForMonth(ctx, s.db, customerID, req.Year, req.Month)
	if err != nil {
		return domain.MonthBalance{}, err
	}
	paymentTotal, err := aggregate.PaymentsForMonth(ctx, s.db, customerID, req.Year, req.Month)
	if err != nil {
		return domain.MonthBalance{}, err
	}
	priorSales, err := aggregate.SalesBefore(ctx, s.db, customerID, req.Year, req.Month)
	if err != nil {
		return domain.MonthBalance{}, err
	}
	priorPayments, err := aggregate.PaymentsBefore(ctx, s.db, customerID, req.Year, req.Month)
	if err != nil {
		return domain.MonthBalance{}, err
	}

	monthBalance := salesTotal.Sub(paymentTotal)
	previousBalance := priorSales.Sub(priorPayments)

	s.checkMaterialized(ctx, customerID, req.Year, req.Month, salesTotal, paymentTotal)

	return domain.MonthBalance{
		Year:            req.Year,
		Month:           req.Month,
		SalesTotal:      salesTotal,
		PaymentTotal:    paymentTotal,
		MonthBalance:    monthBalance,
		PreviousBalance: previousBalance,
		TotalBalance:    previousBalance.Add(monthBalance),
	}, nil
}

// checkMaterialized compares the live numbers with the materialized row, if
// one exists. Disagreement means a recompute was missed somewhere; operators
// need to know, readers must not be blocked.
func (s *Service) checkMaterialized(ctx context.Context, customerID snowflake.ID, year, month int, sales, payments decimal.Decimal) {
	var row balancedomain.MonthlyBalance
	err := s.db.WithContext(ctx).
		Model(&balancedomain.MonthlyBalance{}).
		Where("customer_id = ? AND year = ? AND month = ?", customerID, year, month).
		First(&row).Error
	if err != nil {
		return
	}

	if !row.SalesAmount.Equal(sales) || !row.PaymentAmount.Equal(payments) {
		s.log.Warn("materialized balance disagrees with live computation",
			zap.String("customer_id", customerID.String()),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.String("materialized_sales", row.SalesAmount.String()),
			zap.String("live_sales", sales.String()),
			zap.String("materialized_payments", row.PaymentAmount.String()),
			zap.String("live_payments", payments.String()),
		)
	}
}

type dashboardSaleRow struct {
	Quantity     decimal.Decimal
	Rate         decimal.Decimal
	MilkTypeID   *snowflake.ID
	MilkTypeName *string
}

func (s *Service) DashboardSummary(ctx context.Context, date time.Time) (domain.DashboardSummary, error) {
	if date.IsZero() {
		return domain.DashboardSummary{}, domain.ErrInvalidRange
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	nextDay := day.AddDate(0, 0, 1)
	monthStart, _ := aggregate.MonthRange(day.Year(), int(day.Month()))

	var todayRows []dashboardSaleRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT s.quantity, s.rate, s.milk_type_id, m.name AS milk_type_name
		 FROM sales s
		 LEFT JOIN milk_types m ON m.id = s.milk_type_id
		 WHERE s.date >= ? AND s.date < ?`,
		day, nextDay,
	).Scan(&todayRows).Error
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	todayQuantity := decimal.Zero
	todayAmount := decimal.Zero
	type sliceAgg struct {
		name     string
		quantity decimal.Decimal
		amount   decimal.Decimal
	}
	slices := make(map[snowflake.ID]*sliceAgg)
	for _, row := range todayRows {
		amount := row.Quantity.Mul(row.Rate)
		todayQuantity = todayQuantity.Add(row.Quantity)
		todayAmount = todayAmount.Add(amount)

		if row.MilkTypeID == nil {
			continue
		}
		agg, ok := slices[*row.MilkTypeID]
		if !ok {
			name := ""
			if row.MilkTypeName != nil {
				name = *row.MilkTypeName
			}
			agg = &sliceAgg{name: name, quantity: decimal.Zero, amount: decimal.Zero}
			slices[*row.MilkTypeID] = agg
		}
		agg.quantity = agg.quantity.Add(row.Quantity)
		agg.amount = agg.amount.Add(amount)
	}

	var monthSaleRows []dashboardSaleRow
	err = s.db.WithContext(ctx).Raw(
		`SELECT quantity, rate FROM sales WHERE date >= ? AND date < ?`,
		monthStart, nextDay,
	).Scan(&monthSaleRows).Error
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	monthSales := decimal.Zero
	for _, row := range monthSaleRows {
		monthSales = monthSales.Add(row.Quantity.Mul(row.Rate))
	}

	var paymentRows []struct{ Amount decimal.Decimal }
	err = s.db.WithContext(ctx).Raw(
		`SELECT amount FROM payments WHERE date >= ? AND date < ?`,
		monthStart, nextDay,
	).Scan(&paymentRows).Error
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	monthPayments := decimal.Zero
	for _, row := range paymentRows {
		monthPayments = monthPayments.Add(row.Amount)
	}

	breakdown := make([]domain.MilkTypeSlice, 0, len(slices))
	for id, agg := range slices {
		breakdown = append(breakdown, domain.MilkTypeSlice{
			MilkTypeID: id.String(),
			Name:       agg.name,
			Quantity:   agg.quantity,
			Amount:     agg.amount,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Name < breakdown[j].Name })

	return domain.DashboardSummary{
		Date:              day,
		TodayQuantity:     todayQuantity,
		TodayAmount:       todayAmount,
		MonthSales:        monthSales,
		MonthPayments:     monthPayments,
		MilkTypeBreakdown: breakdown,
	}, nil
}

func (s *Service) MonthlyReport(ctx context.Context, req domain.MonthlyReportRequest) (domain.MonthlyReport, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
		return domain.MonthlyReport{}, domain.ErrInvalidRange
	}

	start := req.StartDate.UTC()
	end := req.EndDate.UTC().AddDate(0, 0, 1) // inclusive end date

	var saleRows []struct {
		Date     time.Time
		Quantity decimal.Decimal
		Rate     decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT date, quantity, rate FROM sales WHERE date >= ? AND date < ?`,
		start, end,
	).Scan(&saleRows).Error
	if err != nil {
		return domain.MonthlyReport{}, err
	}

	var paymentRows []struct {
		Date   time.Time
		Amount decimal.Decimal
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT date, amount FROM payments WHERE date >= ? AND date < ?`,
		start, end,
	).Scan(&paymentRows).Error
	if err != nil {
		return domain.MonthlyReport{}, err
	}

	type key struct {
		year  int
		month int
	}
	buckets := make(map[key]*domain.MonthlyReportRow)
	bucket := func(k key) *domain.MonthlyReportRow {
		row, ok := buckets[k]
		if !ok {
			row = &domain.MonthlyReportRow{
				Year:     k.year,
				Month:    k.month,
				Quantity: decimal.Zero,
				Sales:    decimal.Zero,
				Payments: decimal.Zero,
			}
			buckets[k] = row
		}
		return row
	}

	for _, sale := range saleRows {
		date := sale.Date.UTC()
		row := bucket(key{year: date.Year(), month: int(date.Month())})
		row.Quantity = row.Quantity.Add(sale.Quantity)
		row.Sales = row.Sales.Add(sale.Quantity.Mul(sale.Rate))
	}
	for _, payment := range paymentRows {
		date := payment.Date.UTC()
		row := bucket(key{year: date.Year(), month: int(date.Month())})
		row.Payments = row.Payments.Add(payment.Amount)
	}

	report := domain.MonthlyReport{
		Rows:          make([]domain.MonthlyReportRow, 0, len(buckets)),
		TotalQuantity: decimal.Zero,
		TotalSales:    decimal.Zero,
		TotalPayments: decimal.Zero,
	}
	for _, row := range buckets {
		row.Balance = row.Sales.Sub(row.Payments)
		report.Rows = append(report.Rows, *row)
		report.TotalQuantity = report.TotalQuantity.Add(row.Quantity)
		report.TotalSales = report.TotalSales.Add(row.Sales)
		report.TotalPayments = report.TotalPayments.Add(row.Payments)
	}
	report.TotalBalance = report.TotalSales.Sub(report.TotalPayments)

	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Year != report.Rows[j].Year {
			return report.Rows[i].Year > report.Rows[j].Year
		}
		return report.Rows[i].Month > report.Rows[j].Month
	})

	return report, nil
}

func (s *Service) CustomerBalanceReport(ctx context.Context) ([]domain.CustomerBalanceRow, error) {
	var customers []struct {
		ID   snowflake.ID
		Name string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, name FROM customers`,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}

	rows := make([]domain.CustomerBalanceRow, 0, len(customers))
	for _, customer := range customers {
		totalSales, err := aggregate.TotalSales(ctx, s.db, customer.ID)
		if err != nil {
			return nil, err
		}
		totalPayments, err := aggregate.TotalPayments(ctx, s.db, customer.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, domain.CustomerBalanceRow{
			CustomerID:    customer.ID.String(),
			Name:          customer.Name,
			TotalSales:    totalSales,
			TotalPayments: totalPayments,
			Outstanding:   totalSales.Sub(totalPayments),
		})
	}

	// Highest outstanding first.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Outstanding.GreaterThan(rows[j].Outstanding)
	})
	return rows, nil
}
