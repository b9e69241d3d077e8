package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safar/sales-desk/internal/database"
	"github.com/safar/sales-desk/internal/models"
	"github.com/safar/sales-desk/internal/sales"
	"github.com/safar/sales-desk/internal/store"
)

func TestCustomerCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	customer, err := store.CreateCustomer(ctx, db, models.Customer{
		FirstName: "Ada",
		LastName:  "Moreno",
		Email:     "ada@example.com",
		Phone:     "555-0100",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	updated, err := store.UpdateCustomer(ctx, db, customer.ID, models.Customer{
		FirstName: "Ada",
		LastName:  "Moreno-Diaz",
		Email:     "ada@example.com",
	})
	if err != nil {
		t.Fatalf("update customer: %v", err)
	}
	if updated.LastName != "Moreno-Diaz" {
		t.Errorf("last name = %q, want Moreno-Diaz", updated.LastName)
	}

	page, err := store.ListCustomers(ctx, db, 1, 20)
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("total customers = %d, want 1", page.Total)
	}

	if err := store.DeleteCustomer(ctx, db, customer.ID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if _, err := store.GetCustomer(ctx, db, customer.ID); !errors.Is(err, database.ErrCustomerNotFound) {
		t.Errorf("expected ErrCustomerNotFound after delete, got %v", err)
	}
}

func TestDeleteCustomerWithSalesRefused(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db)
	customer := seedCustomer(t, db)
	product := seedProduct(t, db, "10.00", 5)

	engine := sales.NewEngine(db, nil, sales.EngineOptions{})
	if _, err := engine.SubmitSale(ctx, sales.ProposedSale{
		CustomerID: customer.ID, UserID: user.ID, PaymentMethod: "Cash",
		Lines: []sales.ProposedLine{
			{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}); err != nil {
		t.Fatalf("submit sale: %v", err)
	}

	if err := store.DeleteCustomer(ctx, db, customer.ID); !errors.Is(err, database.ErrCustomerHasSales) {
		t.Errorf("expected ErrCustomerHasSales, got %v", err)
	}
	if err := store.DeleteProduct(ctx, db, product.ID); !errors.Is(err, database.ErrProductHasSales) {
		t.Errorf("expected ErrProductHasSales, got %v", err)
	}
}

func TestListAvailableProducts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	inStock := seedProduct(t, db, "10.00", 3)
	seedProduct(t, db, "5.00", 0)

	available, err := store.ListAvailableProducts(ctx, db)
	if err != nil {
		t.Fatalf("list available products: %v", err)
	}

	if len(available) != 1 {
		t.Fatalf("available products = %d, want 1", len(available))
	}
	if available[0].ID != inStock.ID {
		t.Errorf("available product = %d, want %d", available[0].ID, inStock.ID)
	}
}

func TestUpdateProductDoesNotTouchStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := seedProduct(t, db, "10.00", 7)

	updated, err := store.UpdateProduct(ctx, db, product.ID, "Renamed", "New description",
		decimal.RequireFromString("12.00"))
	if err != nil {
		t.Fatalf("update product: %v", err)
	}

	if updated.StockQuantity != 7 {
		t.Errorf("stock = %d, want 7 (catalog edit must not move stock)", updated.StockQuantity)
	}
	if !updated.Price.Equal(decimal.RequireFromString("12.00")) {
		t.Errorf("price = %s, want 12.00", updated.Price)
	}
}
