// Package notify publishes committed sales to an AMQP exchange for report
// and dashboard consumers. Publishing is best-effort; the sale itself is
// already durable by the time an event goes out.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/safar/sales-desk/internal/models"
)

// SaleRecordedEvent is the wire shape of a committed sale announcement.
type SaleRecordedEvent struct {
	SaleID        int64           `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	CustomerID    int64           `json:"customer_id"`
	UserID        int64           `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

// Connect dials the broker, opens a channel and declares a durable fanout
// exchange for sale events.
func Connect(url, exchange string) (*amqp.Connection, *Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return conn, &Publisher{ch: ch, exchange: exchange}, nil
}

func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) SaleRecorded(ctx context.Context, sale *models.Sale) error {
	body, err := json.Marshal(NewSaleRecordedEvent(sale))
	if err != nil {
		return fmt.Errorf("marshal sale event: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		"", // fanout ignores the routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func NewSaleRecordedEvent(sale *models.Sale) SaleRecordedEvent {
	return SaleRecordedEvent{
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		CustomerID:    sale.CustomerID,
		UserID:        sale.UserID,
		TotalAmount:   sale.TotalAmount,
		ItemCount:     len(sale.Items),
		OccurredAt:    sale.SaleDate,
	}
}
