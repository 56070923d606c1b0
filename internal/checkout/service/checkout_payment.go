package service

import (
	"context"
	"fmt"
	"time"

	cartdomain "github.com/gildedwren/storefront/internal/cart/domain"
	d "github.com/gildedwren/storefront/internal/checkout/domain"
	"github.com/gildedwren/storefront/internal/payment"
)

// EnterPayment moves the session into the payment step. The first entry
// freezes the cart into a snapshot, computes the order totals from it and
// requests a payment intent for the grand total. Re-entry re-uses the
// existing intent while the grand total is unchanged; a changed total takes
// a fresh snapshot and a fresh intent.
func (s *CheckoutServiceImpl) EnterPayment(ctx context.Context, sessionID string) (*d.CheckoutSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrSessionClosed
	}
	if session.Shipping == nil {
		return nil, ErrShippingRequired
	}

	cart, err := s.carts.GetCart(ctx, session.CartSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	snapshot := buildCartSnapshot(cart, s.pricing)

	if session.HasPaymentHandle() && session.Snapshot != nil &&
		session.Snapshot.Totals.GrandTotal == snapshot.Totals.GrandTotal {
		// same amount, same handle; just make sure the step is right
		if session.Step != d.StepPayment {
			if errStep := s.repo.SetStep(ctx, sessionID, d.StepPayment); errStep != nil {
				return nil, fmt.Errorf("failed to update step: %w", errStep)
			}
			session.Step = d.StepPayment
		}
		return session, nil
	}

	if !d.CanTransitionTo(session.Status, d.CheckoutStatusPaymentPending) {
		return nil, ErrIllegalTransition
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	intent, err := s.gateway.CreateIntent(gatewayCtx, snapshot.Totals.GrandTotal, s.pricing.Currency, payment.Metadata{
		CustomerEmail: session.Shipping.Email,
		CustomerName:  session.Shipping.FullName(),
		ItemSummary:   snapshot.ItemSummary(),
		CheckoutID:    session.ID,
	})
	if err != nil {
		return nil, err
	}

	pendingStatus := d.CheckoutStatusPaymentPending
	if err := s.repo.SetPaymentIntent(ctx, sessionID, pendingStatus, intent.ID, intent.ClientSecret, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store payment intent: %w", err)
	}

	session.Status = pendingStatus
	session.Step = d.StepPayment
	session.Snapshot = snapshot
	session.PaymentIntent = intent.ID
	session.ClientSecret = intent.ClientSecret
	return session, nil
}

// buildCartSnapshot freezes line items and totals at payment-entry time.
func buildCartSnapshot(cart *cartdomain.Cart, pricing d.PricingConfig) *d.CartSnapshot {
	snapshot := &d.CartSnapshot{
		Items:      make([]d.CartSnapshotItem, 0, len(cart.Items)),
		Currency:   pricing.Currency,
		CapturedAt: time.Now(),
	}

	for _, item := range cart.Items {
		snapshot.Items = append(snapshot.Items, d.CartSnapshotItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.UnitPrice * item.Quantity,
		})
	}

	snapshot.Totals = d.ComputeTotals(cart.Subtotal(), pricing)
	return snapshot
}
