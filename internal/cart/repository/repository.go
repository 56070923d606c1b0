package repository

import (
	"context"
	"errors"

	"github.com/gildedwren/storefront/internal/cart/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")

	// ErrVersionConflict means another writer stored the cart between this
	// writer's read and its upsert. Callers re-read and re-apply.
	ErrVersionConflict = errors.New("cart version conflict")
)

// CartRepository persists carts keyed by browsing session id. All item
// bookkeeping happens in the domain aggregate; the repository only loads and
// stores whole carts so every mutation goes through the single reducer path.
// UpsertCart is a compare-and-swap on Cart.Version: it stores the cart only
// if the persisted version still equals cart.Version, and returns
// ErrVersionConflict otherwise.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}
