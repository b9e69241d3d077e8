package sales

import (
	"github.com/shopspring/decimal"
)

// ProposedLine is one (product, quantity, unit price) entry of a submission.
// UnitPrice is snapshotted into the sale item as submitted unless the engine
// is configured to enforce catalog prices.
type ProposedLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ProposedSale is a fully-formed order submission. UserID is the acting
// salesperson, supplied by the session layer and trusted here.
type ProposedSale struct {
	CustomerID    int64          `json:"customer_id"`
	UserID        int64          `json:"user_id"`
	PaymentMethod string         `json:"payment_method"`
	Notes         string         `json:"notes"`
	Lines         []ProposedLine `json:"lines"`
}

// Policy makes the handling of non-positive quantities an explicit choice.
// The tolerant default drops such lines and proceeds with the rest.
type Policy struct {
	RejectNonPositiveLines bool
}

// Validate checks a proposed sale against structural rules and returns the
// lines that will be committed, in submission order. It performs no reads or
// writes; stock is checked at commit time by the inventory decrement.
func Validate(p ProposedSale, policy Policy) ([]ProposedLine, error) {
	if p.CustomerID <= 0 {
		return nil, ErrInvalidCustomer
	}
	if len(p.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	lines := make([]ProposedLine, 0, len(p.Lines))
	for i, line := range p.Lines {
		if line.Quantity <= 0 {
			if policy.RejectNonPositiveLines {
				return nil, &LineQuantityError{Index: i, Quantity: line.Quantity}
			}
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	return lines, nil
}
