package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/sales-desk/internal/database"
	"github.com/safar/sales-desk/internal/models"
)

func CreateCustomer(ctx context.Context, db *sql.DB, c models.Customer) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		INSERT INTO customers (first_name, last_name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, first_name, last_name, email, phone, address, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, c.FirstName, c.LastName, c.Email, c.Phone, c.Address).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.Phone,
		&customer.Address,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}

func GetCustomer(ctx context.Context, db *sql.DB, id int64) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		SELECT id, first_name, last_name, email, phone, address, created_at, updated_at
		FROM customers
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.Phone,
		&customer.Address,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return customer, nil
}

func UpdateCustomer(ctx context.Context, db *sql.DB, id int64, c models.Customer) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		UPDATE customers
		SET first_name = $1, last_name = $2, email = $3, phone = $4, address = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING id, first_name, last_name, email, phone, address, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, id).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.Phone,
		&customer.Address,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}

	return customer, nil
}

// DeleteCustomer refuses to remove a customer with recorded sales.
func DeleteCustomer(ctx context.Context, db *sql.DB, id int64) error {
	var referenced bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sales WHERE customer_id = $1)`, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check customer references: %w", err)
	}
	if referenced {
		return database.ErrCustomerHasSales
	}

	result, err := db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCustomerNotFound
	}

	return nil
}

func ListCustomers(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, first_name, last_name, email, phone, address, created_at, updated_at
		FROM customers
		ORDER BY last_name, first_name, id
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var customer models.Customer
		err := rows.Scan(
			&customer.ID,
			&customer.FirstName,
			&customer.LastName,
			&customer.Email,
			&customer.Phone,
			&customer.Address,
			&customer.CreatedAt,
			&customer.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage{
		Items:      customers,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
