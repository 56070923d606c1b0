package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/gildedwren/storefront/internal/orders/domain"
	"github.com/gildedwren/storefront/internal/orders/repository"
)

type OrderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// ConfirmOrder records the order for a paid checkout. The customer has
// already been charged when this runs, so a duplicate insert (same checkout
// settled twice, e.g. a confirm retry) is treated as success rather than an
// error.
func (s *OrderService) ConfirmOrder(ctx context.Context, order *domain.Order) error {
	err := s.repo.CreateOrder(ctx, order)
	if errors.Is(err, repository.ErrDuplicateCheckout) {
		log.Printf("order for checkout %s already recorded", order.CheckoutID)
		return nil
	}
	return err
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *OrderService) ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	return s.repo.ListRecentOrders(ctx, limit)
}
