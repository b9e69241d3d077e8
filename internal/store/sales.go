package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/sales-desk/internal/database"
	"github.com/safar/sales-desk/internal/models"
)

// InsertSale writes a sale header and its items. It is only called by the
// sale engine inside its commit transaction; the header and every item land
// together or not at all.
func InsertSale(ctx context.Context, tx *sql.Tx, sale *models.Sale) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO sales (receipt_number, user_id, customer_id, sale_date, payment_method, notes, total_amount)
		 VALUES ($1, $2, $3, NOW(), $4, $5, $6)
		 RETURNING id, sale_date`,
		sale.ReceiptNumber, sale.UserID, sale.CustomerID,
		sale.PaymentMethod, sale.Notes, sale.TotalAmount,
	).Scan(&sale.ID, &sale.SaleDate)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID

		err := tx.QueryRowContext(ctx,
			`INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}

	return nil
}

// GetSale fetches a committed sale with its items and the joined customer,
// salesperson and product names for display.
func GetSale(ctx context.Context, db *sql.DB, id int64) (*models.Sale, error) {
	sale := &models.Sale{}

	query := `
		SELECT s.id, s.receipt_number, s.user_id, s.customer_id, s.sale_date,
		       s.payment_method, s.notes, s.total_amount,
		       c.first_name || ' ' || c.last_name, u.full_name
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&sale.ID,
		&sale.ReceiptNumber,
		&sale.UserID,
		&sale.CustomerID,
		&sale.SaleDate,
		&sale.PaymentMethod,
		&sale.Notes,
		&sale.TotalAmount,
		&sale.CustomerName,
		&sale.Salesperson,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	itemsQuery := `
		SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price, si.subtotal, p.name
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id`

	rows, err := db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	defer rows.Close()

	var items []models.SaleItem
	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.ProductName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	sale.Items = items

	return sale, nil
}

// ListSalesCursor pages through all sales newest first.
func ListSalesCursor(ctx context.Context, db *sql.DB, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT s.id, s.receipt_number, s.user_id, s.customer_id, s.sale_date,
		       s.payment_method, s.total_amount,
		       c.first_name || ' ' || c.last_name, u.full_name
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		JOIN users u ON u.id = s.user_id
		WHERE (s.sale_date, s.id) < ($1, $2)
		ORDER BY s.sale_date DESC, s.id DESC
		LIMIT $3`

	rows, err := db.QueryContext(ctx, query, cursorData.SaleDate, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	sales, err := scanSaleRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(sales) > limit
	if hasMore {
		sales = sales[:limit]
	}

	var nextCursor string
	if hasMore && len(sales) > 0 {
		last := sales[len(sales)-1]
		nextCursor = EncodeCursor(SaleCursor{SaleDate: last.SaleDate, ID: last.ID})
	}

	return &CursorPage{
		Items:      sales,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListSalesByCustomer returns a customer's purchase history, newest first.
func ListSalesByCustomer(ctx context.Context, db *sql.DB, customerID int64, limit int) ([]models.Sale, error) {
	query := `
		SELECT s.id, s.receipt_number, s.user_id, s.customer_id, s.sale_date,
		       s.payment_method, s.total_amount,
		       c.first_name || ' ' || c.last_name, u.full_name
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		JOIN users u ON u.id = s.user_id
		WHERE s.customer_id = $1
		ORDER BY s.sale_date DESC, s.id DESC
		LIMIT $2`

	rows, err := db.QueryContext(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sales by customer: %w", err)
	}
	defer rows.Close()

	return scanSaleRows(rows)
}

func scanSaleRows(rows *sql.Rows) ([]models.Sale, error) {
	var sales []models.Sale
	for rows.Next() {
		var sale models.Sale
		err := rows.Scan(
			&sale.ID,
			&sale.ReceiptNumber,
			&sale.UserID,
			&sale.CustomerID,
			&sale.SaleDate,
			&sale.PaymentMethod,
			&sale.TotalAmount,
			&sale.CustomerName,
			&sale.Salesperson,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sales, nil
}
