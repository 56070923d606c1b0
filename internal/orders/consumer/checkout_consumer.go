package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	checkout "github.com/gildedwren/storefront/internal/checkout/domain"
	"github.com/gildedwren/storefront/internal/orders/domain"
	"github.com/gildedwren/storefront/internal/orders/repository"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Consumer turns published order.completed events into order rows. Orders
// are normally written synchronously when a payment settles; this path
// re-creates any order the synchronous write missed, so inserts must stay
// idempotent per checkout.
type Consumer struct {
	repo   repository.OrderRepository
	reader messageReader
	closer func() error
}

func NewConsumer(repo repository.OrderRepository, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "storefront-orders",
		GroupID:  "orders-writer",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo: repo, reader: reader, closer: reader.Close}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.closer(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var event checkout.OrderCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}
	if event.CheckoutID == "" {
		log.Printf("order event missing checkout_id, skipping")
		return
	}

	if err := c.repo.CreateOrder(ctx, orderFromEvent(&event)); err != nil {
		if errors.Is(err, repository.ErrDuplicateCheckout) {
			return
		}
		log.Printf("failed to create order for checkout %s: %v", event.CheckoutID, err)
		return
	}

	log.Printf("order recorded for checkout %s", event.CheckoutID)
}

func orderFromEvent(event *checkout.OrderCompletedEvent) *domain.Order {
	items := make([]domain.OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	currency := event.Currency
	if currency == "" {
		currency = "usd"
	}

	return &domain.Order{
		ID:              uuid.New(),
		CheckoutID:      event.CheckoutID,
		Email:           event.Email,
		Name:            event.Name,
		Subtotal:        event.Totals.Subtotal,
		Shipping:        event.Totals.Shipping,
		Tax:             event.Totals.Tax,
		TotalAmount:     event.Totals.GrandTotal,
		Currency:        currency,
		PaymentIntentID: event.PaymentIntentID,
		Status:          domain.OrderStatusConfirmed,
		Items:           items,
	}
}
