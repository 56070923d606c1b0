package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// Order is the persisted record of a paid checkout. Amounts are in minor
// currency units.
type Order struct {
	ID              uuid.UUID
	CheckoutID      string
	Email           string
	Name            string
	Subtotal        int64
	Shipping        int64
	Tax             int64
	TotalAmount     int64
	Currency        string
	PaymentIntentID string
	Status          OrderStatus
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
