package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	d "github.com/gildedwren/storefront/internal/checkout/domain"
	orderdomain "github.com/gildedwren/storefront/internal/orders/domain"
	"github.com/gildedwren/storefront/internal/payment"
)

// ConfirmResult is what the payment step resolves to when confirmation does
// not end in an error.
type ConfirmResult struct {
	Status  d.CheckoutStatus
	OrderID string
	Message string
}

// ConfirmPayment asks the gateway to confirm the session's intent and
// resolves the outcome. The cart is cleared only when the gateway succeeded
// AND the order was confirmed; every other path leaves it intact.
func (s *CheckoutServiceImpl) ConfirmPayment(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrSessionClosed
	}
	if !session.HasPaymentHandle() || session.Snapshot == nil {
		return nil, ErrPaymentNotReady
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	conf, err := s.gateway.ConfirmIntent(gatewayCtx, session.PaymentIntent)
	if err != nil {
		// a cancelled confirm must not mutate state; transient gateway
		// faults are reported as-is so the customer can retry
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	switch conf.Status {
	case payment.StatusSucceeded:
		return s.settle(ctx, session)

	case payment.StatusProcessing:
		s.setStatus(ctx, session, d.CheckoutStatusPaymentProcessing)
		return &ConfirmResult{
			Status:  d.CheckoutStatusPaymentProcessing,
			Message: "Your payment is processing. We'll email you once it completes.",
		}, nil

	case payment.StatusRequiresAction:
		s.setStatus(ctx, session, d.CheckoutStatusRequiresAction)
		return &ConfirmResult{
			Status:  d.CheckoutStatusRequiresAction,
			Message: "Your bank requires additional authentication to complete this payment.",
		}, nil

	default:
		// decline or gateway error: the session stays retryable
		s.setStatus(ctx, session, d.CheckoutStatusPaymentPending)
		if conf.Err != nil {
			return nil, conf.Err
		}
		return nil, &payment.GatewayError{Kind: payment.KindAPIError, Message: "payment failed"}
	}
}

// settle runs the backend confirmation step after a gateway success. Failure
// here is the one genuinely dangerous case: the customer was charged, so the
// session is parked in PAYMENT_PROCESSING and the cart is NOT cleared.
func (s *CheckoutServiceImpl) settle(ctx context.Context, session *d.CheckoutSession) (*ConfirmResult, error) {
	if !d.CanTransitionTo(session.Status, d.CheckoutStatusCompleted) {
		return nil, ErrIllegalTransition
	}

	order := orderFromSession(session)
	if err := s.confirmer.ConfirmOrder(ctx, order); err != nil {
		log.Printf("order confirmation failed after gateway success, checkout = %v intent = %v: %v",
			session.ID, session.PaymentIntent, err)
		s.setStatus(ctx, session, d.CheckoutStatusPaymentProcessing)
		return nil, ErrConfirmationPending
	}

	payload, err := json.Marshal(d.OrderCompletedEvent{
		CheckoutID:      session.ID,
		Email:           session.Shipping.Email,
		Name:            session.Shipping.FullName(),
		Items:           session.Snapshot.Items,
		Totals:          session.Snapshot.Totals,
		Currency:        session.Snapshot.Currency,
		PaymentIntentID: session.PaymentIntent,
		CompletedAt:     time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	if err := s.repo.CompleteSession(ctx, session.ID, d.CheckoutStatusCompleted, payload); err != nil {
		log.Printf("failed to complete checkout session %v: %v", session.ID, err)
		return nil, ErrConfirmationPending
	}

	// order is confirmed; a cart-clear failure is recoverable noise
	if err := s.carts.ClearCart(ctx, session.CartSessionID); err != nil {
		log.Printf("failed to clear cart %v after checkout %v: %v", session.CartSessionID, session.ID, err)
	}

	return &ConfirmResult{
		Status:  d.CheckoutStatusCompleted,
		OrderID: order.ID.String(),
	}, nil
}

func (s *CheckoutServiceImpl) setStatus(ctx context.Context, session *d.CheckoutSession, status d.CheckoutStatus) {
	if session.Status == status {
		return
	}
	if err := s.repo.UpdateStatus(ctx, session.ID, status); err != nil {
		log.Printf("failed to update checkout %v status to %v: %v", session.ID, status, err)
		return
	}
	session.Status = status
}

func orderFromSession(session *d.CheckoutSession) *orderdomain.Order {
	items := make([]orderdomain.OrderItem, len(session.Snapshot.Items))
	for i, item := range session.Snapshot.Items {
		items[i] = orderdomain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	return &orderdomain.Order{
		ID:              uuid.New(),
		CheckoutID:      session.ID,
		Email:           session.Shipping.Email,
		Name:            session.Shipping.FullName(),
		Subtotal:        session.Snapshot.Totals.Subtotal,
		Shipping:        session.Snapshot.Totals.Shipping,
		Tax:             session.Snapshot.Totals.Tax,
		TotalAmount:     session.Snapshot.Totals.GrandTotal,
		Currency:        session.Snapshot.Currency,
		PaymentIntentID: session.PaymentIntent,
		Status:          orderdomain.OrderStatusConfirmed,
		Items:           items,
	}
}
