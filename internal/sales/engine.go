// Package sales implements the sale transaction engine: validation, inventory
// reservation, pricing and persistence of one order submission as a single
// all-or-nothing unit.
package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/sales-desk/internal/database"
	"github.com/safar/sales-desk/internal/inventory"
	"github.com/safar/sales-desk/internal/models"
	"github.com/safar/sales-desk/internal/pricing"
	"github.com/safar/sales-desk/internal/store"
)

// Notifier receives committed sales for downstream consumers. Publish
// failures never affect the sale itself.
type Notifier interface {
	SaleRecorded(ctx context.Context, sale *models.Sale) error
}

// Engine turns proposed sales into committed ones. A submission is observed
// either fully applied (sale, items, stock decrements) or fully unapplied;
// the whole sequence runs in one serializable transaction, so rollback of a
// failed attempt needs no compensation.
type Engine struct {
	db                  *sql.DB
	log                 *zap.Logger
	policy              Policy
	enforceCatalogPrice bool
	cache               *inventory.StockCache
	notifier            Notifier
}

type EngineOptions struct {
	Policy              Policy
	EnforceCatalogPrice bool
	Cache               *inventory.StockCache
	Notifier            Notifier
}

func NewEngine(db *sql.DB, logger *zap.Logger, opts EngineOptions) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:                  db,
		log:                 logger.Named("engine"),
		policy:              opts.Policy,
		enforceCatalogPrice: opts.EnforceCatalogPrice,
		cache:               opts.Cache,
		notifier:            opts.Notifier,
	}
}

// SubmitSale validates p, reserves stock for each line in submission order,
// computes totals and persists the sale with its items. On any failure the
// transaction rolls back and no effect remains. Once committed the sale is
// immutable; external cancellation is not supported past validation, which
// has no side effects.
func (e *Engine) SubmitSale(ctx context.Context, p ProposedSale) (*models.Sale, error) {
	start := time.Now()

	lines, err := Validate(p, e.policy)
	if err != nil {
		return nil, err
	}

	sale := &models.Sale{
		ReceiptNumber: "RCPT-" + uuid.NewString(),
		UserID:        p.UserID,
		CustomerID:    p.CustomerID,
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
	}

	err = database.WithRetry(ctx, e.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		items := make([]models.SaleItem, 0, len(lines))
		for _, line := range lines {
			unitPrice := line.UnitPrice
			if e.enforceCatalogPrice {
				price, err := catalogPrice(ctx, tx, line.ProductID)
				if err != nil {
					return err
				}
				unitPrice = price
			}

			if err := inventory.DecrementIfAvailable(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}

			items = append(items, models.SaleItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Subtotal:  pricing.Subtotal(line.Quantity, unitPrice),
			})
		}

		priceLines := make([]pricing.Line, len(items))
		for i, item := range items {
			priceLines[i] = pricing.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
		}
		sale.TotalAmount = pricing.Total(priceLines)
		sale.Items = items

		return store.InsertSale(ctx, tx, sale)
	})
	if err != nil {
		var short *inventory.InsufficientStockError
		switch {
		case errors.As(err, &short):
			return nil, short
		case errors.Is(err, database.ErrProductNotFound):
			return nil, err
		default:
			e.log.Error("sale commit failed, all effects rolled back",
				zap.Int64("customer_id", p.CustomerID),
				zap.Int64("user_id", p.UserID),
				zap.Error(err))
			return nil, &PersistenceError{Cause: err}
		}
	}

	e.log.Info("sale committed",
		zap.Int64("sale_id", sale.ID),
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.String("total_amount", sale.TotalAmount.String()),
		zap.Int("items", len(sale.Items)),
		zap.Duration("took", time.Since(start)))

	e.afterCommit(ctx, sale)

	return sale, nil
}

// afterCommit runs best-effort side effects outside the atomic scope.
func (e *Engine) afterCommit(ctx context.Context, sale *models.Sale) {
	if e.cache != nil {
		for _, item := range sale.Items {
			if err := e.cache.Forget(ctx, item.ProductID); err != nil {
				e.log.Warn("stock cache invalidation failed",
					zap.Int64("product_id", item.ProductID),
					zap.Error(err))
			}
		}
	}

	if e.notifier != nil {
		if err := e.notifier.SaleRecorded(ctx, sale); err != nil {
			e.log.Warn("sale event publish failed",
				zap.Int64("sale_id", sale.ID),
				zap.Error(err))
		}
	}
}

func catalogPrice(ctx context.Context, tx *sql.Tx, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT price FROM products WHERE id = $1`, productID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, database.ErrProductNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read catalog price: %w", err)
	}
	return price, nil
}
