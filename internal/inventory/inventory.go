// Package inventory owns every stock mutation. Stock only ever changes
// through DecrementIfAvailable and Restore; no other code path may
// read-then-write stock_quantity.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/sales-desk/internal/database"
)

// InsufficientStockError reports a conditional decrement that found less
// stock than requested. Available is the quantity observed at decision time.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// DecrementIfAvailable atomically checks stock_quantity >= quantity and
// decrements in the same statement. The check and the write are one
// conditional UPDATE so concurrent submissions can never both pass a check
// that only covers one of them. q may be a *sql.DB or an open *sql.Tx.
func DecrementIfAvailable(ctx context.Context, q database.Execer, productID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("decrement quantity must be >= 1, got %d", quantity)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// The guard did not match: either the product is missing or stock is
	// short. Re-read only to report which, and how much was available.
	var available int
	err = q.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("read stock after failed decrement: %w", err)
	}

	return &InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
}

// Restore adds quantity back to a product's stock. It is the rollback
// counterpart of DecrementIfAvailable and also serves restocking.
func Restore(ctx context.Context, q database.Execer, productID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("restore quantity must be >= 1, got %d", quantity)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
