package service

import (
	"context"

	cartdomain "github.com/gildedwren/storefront/internal/cart/domain"
	orderdomain "github.com/gildedwren/storefront/internal/orders/domain"
)

// CartAccess is what the orchestrator needs from the cart side: a snapshot
// read at payment entry and a clear after a fully confirmed order.
type CartAccess interface {
	GetCart(ctx context.Context, sessionID string) (*cartdomain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// OrderConfirmer is the authoritative order-persistence step. Only its
// success permits clearing the cart after a gateway success.
type OrderConfirmer interface {
	ConfirmOrder(ctx context.Context, order *orderdomain.Order) error
}
