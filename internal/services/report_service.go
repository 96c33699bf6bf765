package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
)

// RevenueStatuses are the order states whose totals count as earned revenue.
var RevenueStatuses = []orderstatus.Status{
	orderstatus.Paid,
	orderstatus.Processing,
	orderstatus.ReadyForPickup,
	orderstatus.Completed,
}

// FinancialReport summarizes money in and out over a period.
type FinancialReport struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	ProductRevenue decimal.Decimal `json:"product_revenue"`
	TaxCollected   decimal.Decimal `json:"tax_collected"`
	DiscountsGiven decimal.Decimal `json:"discounts_given"`
	ServiceRevenue decimal.Decimal `json:"service_revenue"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	NetProfit      decimal.Decimal `json:"net_profit"`

	OrdersByStatus        map[string]int64 `json:"orders_by_status"`
	CompletedAppointments int64            `json:"completed_appointments"`
	TopProducts           []ProductSales   `json:"top_products"`
	ExpensesByCategory    []CategoryTotal  `json:"expenses_by_category"`
	Expenses              []models.Expense `json:"expenses"`
}

// ProductSales is one row of the best-seller table.
type ProductSales struct {
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// CategoryTotal sums expenses per category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Dashboard is the back-office landing summary.
type Dashboard struct {
	TodayRevenue         decimal.Decimal `json:"today_revenue"`
	TodayOrders          int64           `json:"today_orders"`
	PendingVerification  int64           `json:"pending_verification"`
	AwaitingProof        int64           `json:"awaiting_proof"`
	UpcomingAppointments int64           `json:"upcoming_appointments"`
	QueueWaiting         int64           `json:"queue_waiting"`
	LowStockProducts     int64           `json:"low_stock_products"`
}

const lowStockThreshold = 5

// ReportService builds financial reports and the admin dashboard.
type ReportService struct {
	db       *gorm.DB
	queue    *QueueService
	location *time.Location
	log      *zap.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService. Dashboard days follow the
// queue's time zone, UTC without a queue.
func NewReportService(db *gorm.DB, queue *QueueService, log *zap.Logger) *ReportService {
	loc := time.UTC
	if queue != nil {
		loc = queue.Location()
	}
	return &ReportService{
		db:       db,
		queue:    queue,
		location: loc,
		log:      log.Named("reports"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type sumRow struct {
	Total decimal.Decimal
}

func sum(query *gorm.DB, expr string) (decimal.Decimal, error) {
	var row sumRow
	if err := query.Select(fmt.Sprintf("COALESCE(SUM(%s), 0) AS total", expr)).Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// Financial builds the report for [from, to).
func (s *ReportService) Financial(ctx context.Context, from, to time.Time) (*FinancialReport, error) {
	from, to = from.UTC(), to.UTC()
	db := s.db.WithContext(ctx)

	report := &FinancialReport{From: from, To: to, OrdersByStatus: map[string]int64{}}

	paidOrders := func() *gorm.DB {
		return db.Model(&models.Order{}).
			Where("status IN ? AND created_at >= ? AND created_at < ?", RevenueStatuses, from, to)
	}

	var err error
	if report.ProductRevenue, err = sum(paidOrders(), "total"); err != nil {
		return nil, err
	}
	if report.TaxCollected, err = sum(paidOrders(), "tax"); err != nil {
		return nil, err
	}
	if report.DiscountsGiven, err = sum(paidOrders(), "discount"); err != nil {
		return nil, err
	}

	completed := db.Model(&models.Appointment{}).
		Where("status = ? AND start_time >= ? AND start_time < ?", models.AppointmentCompleted, from, to)
	if report.ServiceRevenue, err = sum(completed, "price"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Appointment{}).
		Where("status = ? AND start_time >= ? AND start_time < ?", models.AppointmentCompleted, from, to).
		Count(&report.CompletedAppointments).Error; err != nil {
		return nil, err
	}

	if err := db.Where("spent_at >= ? AND spent_at < ?", from, to).
		Order("spent_at").
		Find(&report.Expenses).Error; err != nil {
		return nil, err
	}

	byCategory := map[string]decimal.Decimal{}
	var categories []string
	report.TotalExpenses = decimal.Zero
	for _, e := range report.Expenses {
		if _, ok := byCategory[e.Category]; !ok {
			categories = append(categories, e.Category)
		}
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
		report.TotalExpenses = report.TotalExpenses.Add(e.Amount)
	}
	for _, c := range categories {
		report.ExpensesByCategory = append(report.ExpensesByCategory, CategoryTotal{Category: c, Total: byCategory[c]})
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, r := range statusRows {
		report.OrdersByStatus[r.Status] = r.Count
	}

	if err := db.Table("order_items").
		Select("order_items.product_name AS product_name, SUM(order_items.quantity) AS quantity, SUM(order_items.line_total) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ? AND orders.created_at >= ? AND orders.created_at < ?", RevenueStatuses, from, to).
		Group("order_items.product_name").
		Order("quantity DESC").
		Limit(5).
		Scan(&report.TopProducts).Error; err != nil {
		return nil, err
	}
	for i := range report.TopProducts {
		report.TopProducts[i].Revenue = report.TopProducts[i].Revenue.Round(2)
	}

	report.TotalRevenue = report.ProductRevenue.Add(report.ServiceRevenue)
	report.NetProfit = report.TotalRevenue.Sub(report.TaxCollected).Sub(report.TotalExpenses)

	s.log.Debug("financial report built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.String("net_profit", report.NetProfit.StringFixed(2)),
	)
	return report, nil
}

// Dashboard summarizes what needs attention today.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	local := now.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location).UTC()
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.location).UTC()

	d := &Dashboard{}
	var err error
	if d.TodayRevenue, err = sum(db.Model(&models.Order{}).
		Where("status IN ? AND created_at >= ? AND created_at < ?", RevenueStatuses, start, end), "total"); err != nil {
		return nil, err
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&d.TodayOrders, db.Model(&models.Order{}).Where("created_at >= ? AND created_at < ?", start, end)},
		{&d.PendingVerification, db.Model(&models.Order{}).
			Where("status = ? AND (payment_method = ? OR payment_proof_url IS NOT NULL)",
				orderstatus.PendingPayment, models.PaymentCash)},
		{&d.AwaitingProof, db.Model(&models.Order{}).
			Where("status IN ? AND payment_method = ? AND payment_proof_url IS NULL",
				[]orderstatus.Status{orderstatus.PendingPayment, orderstatus.PaymentRejected}, models.PaymentTransfer)},
		{&d.UpcomingAppointments, db.Model(&models.Appointment{}).
			Where("status IN ? AND start_time >= ?", blockingAppointmentStatuses, now)},
		{&d.LowStockProducts, db.Model(&models.Product{}).
			Where("is_active = ? AND stock_quantity <= ?", true, lowStockThreshold)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	if s.queue != nil {
		entries, err := s.queue.Today(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Status == models.QueueWaiting {
				d.QueueWaiting++
			}
		}
	}
	return d, nil
}

// ExportXLSX renders the report as a workbook with a summary sheet and an
// expenses sheet.
func (s *ReportService) ExportXLSX(report *FinancialReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}

	money := func(v decimal.Decimal) interface{} { return v.InexactFloat64() }
	rows := [][]interface{}{
		{"Financial report"},
		{"Period", report.From.Format("2006-01-02") + " - " + report.To.Format("2006-01-02")},
		{},
		{"Product revenue", money(report.ProductRevenue)},
		{"Tax collected", money(report.TaxCollected)},
		{"Discounts given", money(report.DiscountsGiven)},
		{"Service revenue", money(report.ServiceRevenue)},
		{"Total revenue", money(report.TotalRevenue)},
		{"Total expenses", money(report.TotalExpenses)},
		{"Net profit", money(report.NetProfit)},
		{"Completed appointments", report.CompletedAppointments},
		{},
		{"Order status", "Count"},
	}
	for _, st := range orderstatus.All() {
		rows = append(rows, []interface{}{st.String(), report.OrdersByStatus[st.String()]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Top product", "Quantity", "Revenue"})
	for _, p := range report.TopProducts {
		rows = append(rows, []interface{}{p.ProductName, p.Quantity, money(p.Revenue)})
	}
	if err := writeRows(f, summary, rows); err != nil {
		return nil, err
	}

	const expenses = "Expenses"
	if _, err := f.NewSheet(expenses); err != nil {
		return nil, err
	}
	expenseRows := [][]interface{}{{"Date", "Category", "Description", "Amount"}}
	for _, e := range report.Expenses {
		expenseRows = append(expenseRows, []interface{}{
			e.SpentAt.Format("2006-01-02"), e.Category, e.Description, money(e.Amount),
		})
	}
	expenseRows = append(expenseRows, []interface{}{"", "", "Total", money(report.TotalExpenses)})
	if err := writeRows(f, expenses, expenseRows); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(summary, "A", "A", 26); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(expenses, "C", "C", 40); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
