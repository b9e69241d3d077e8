// Package reports aggregates committed sales for the dashboard and the
// product sales report. Reads only; totals come straight from sale rows, so
// figures always reflect fully committed submissions.
package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/safar/sales-desk/internal/models"
	"github.com/safar/sales-desk/internal/store"
)

type DashboardStats struct {
	TotalCustomers int64            `json:"total_customers"`
	TotalProducts  int64            `json:"total_products"`
	TotalSales     int64            `json:"total_sales"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	RecentSales    []models.Sale    `json:"recent_sales"`
	TopProducts    []ProductSummary `json:"top_products"`
}

type ProductSummary struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	UnitsSold    int64           `json:"units_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type Service struct {
	db    *sql.DB
	group singleflight.Group
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Dashboard computes the landing-page statistics. Concurrent callers share
// one in-flight computation.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	v, err, _ := s.group.Do("dashboard", func() (interface{}, error) {
		return s.dashboard(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DashboardStats), nil
}

func (s *Service) dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{TotalRevenue: decimal.Zero}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM sales),
			(SELECT COALESCE(SUM(total_amount), 0) FROM sales)`)
	err := row.Scan(&stats.TotalCustomers, &stats.TotalProducts, &stats.TotalSales, &stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	page, err := store.ListSalesCursor(ctx, s.db, "", 5)
	if err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}
	if sales, ok := page.Items.([]models.Sale); ok {
		stats.RecentSales = sales
	}

	stats.TopProducts, err = s.topProducts(ctx, 5)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Service) topProducts(ctx context.Context, limit int) ([]ProductSummary, error) {
	query := `
		SELECT p.id, p.name, SUM(si.quantity), SUM(si.subtotal)
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		GROUP BY p.id, p.name
		ORDER BY SUM(si.quantity) DESC, p.id
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	return scanProductSummaries(rows)
}

// ProductSales reports units sold and revenue for every product that has
// appeared in a sale, busiest first.
func (s *Service) ProductSales(ctx context.Context) ([]ProductSummary, error) {
	query := `
		SELECT p.id, p.name, SUM(si.quantity), SUM(si.subtotal)
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		GROUP BY p.id, p.name
		ORDER BY SUM(si.quantity) DESC, p.id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("product sales report: %w", err)
	}
	defer rows.Close()

	return scanProductSummaries(rows)
}

func scanProductSummaries(rows *sql.Rows) ([]ProductSummary, error) {
	var summaries []ProductSummary
	for rows.Next() {
		var summary ProductSummary
		err := rows.Scan(&summary.ProductID, &summary.ProductName, &summary.UnitsSold, &summary.TotalRevenue)
		if err != nil {
			return nil, fmt.Errorf("scan product summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return summaries, nil
}
