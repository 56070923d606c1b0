package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	d "github.com/gildedwren/storefront/internal/checkout/domain"
	r "github.com/gildedwren/storefront/internal/checkout/repository"
	"github.com/gildedwren/storefront/internal/payment"
)

// CheckoutService drives a checkout session from shipping collection through
// payment to a confirmed order.
type CheckoutService interface {
	Begin(ctx context.Context, cartSessionID string) (*d.CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (*d.CheckoutSession, error)
	SubmitShipping(ctx context.Context, sessionID string, details d.ShippingDetails) (*d.CheckoutSession, error)
	EnterPayment(ctx context.Context, sessionID string) (*d.CheckoutSession, error)
	Back(ctx context.Context, sessionID string) (*d.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*ConfirmResult, error)
	Cancel(ctx context.Context, sessionID string) error
}

type CheckoutServiceImpl struct {
	repo      r.RepoInterface
	carts     CartAccess
	gateway   payment.Gateway
	confirmer OrderConfirmer
	pricing   d.PricingConfig
	timeout   time.Duration
}

func NewCheckoutService(
	repo r.RepoInterface,
	carts CartAccess,
	gateway payment.Gateway,
	confirmer OrderConfirmer,
	pricing d.PricingConfig,
	timeout time.Duration,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		repo:      repo,
		carts:     carts,
		gateway:   gateway,
		confirmer: confirmer,
		pricing:   pricing,
		timeout:   timeout,
	}
}

// Begin opens a checkout session for a non-empty cart. Calling it again for
// the same cart session returns the already-open session.
func (s *CheckoutServiceImpl) Begin(ctx context.Context, cartSessionID string) (*d.CheckoutSession, error) {
	existing, err := s.repo.GetOpenSessionByCartSession(ctx, cartSessionID)
	if err != nil && !errors.Is(err, r.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to look up open session: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	cart, err := s.carts.GetCart(ctx, cartSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	session := &d.CheckoutSession{
		ID:            uuid.NewString(),
		CartSessionID: cartSessionID,
		Step:          d.StepShippingInfo,
		Status:        d.CheckoutStatusOpen,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session, nil
}

func (s *CheckoutServiceImpl) GetSession(ctx context.Context, sessionID string) (*d.CheckoutSession, error) {
	return s.repo.GetSession(ctx, sessionID)
}

// SubmitShipping validates the shipping form and moves the session to the
// payment step. Validation fails closed: any missing required field leaves
// the session where it is.
func (s *CheckoutServiceImpl) SubmitShipping(ctx context.Context, sessionID string, details d.ShippingDetails) (*d.CheckoutSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrSessionClosed
	}

	if err := details.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateShipping(ctx, sessionID, &details, d.StepPayment); err != nil {
		return nil, fmt.Errorf("failed to store shipping details: %w", err)
	}

	session.Shipping = &details
	session.Step = d.StepPayment
	return session, nil
}

// Back returns the customer from the payment step to the shipping form. An
// already-obtained payment intent is kept; re-entering payment re-uses it
// while the total is unchanged.
func (s *CheckoutServiceImpl) Back(ctx context.Context, sessionID string) (*d.CheckoutSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrSessionClosed
	}

	if session.Step != d.StepShippingInfo {
		if err := s.repo.SetStep(ctx, sessionID, d.StepShippingInfo); err != nil {
			return nil, fmt.Errorf("failed to update step: %w", err)
		}
		session.Step = d.StepShippingInfo
	}
	return session, nil
}

// Cancel discards the session. The cart is untouched.
func (s *CheckoutServiceImpl) Cancel(ctx context.Context, sessionID string) error {
	err := s.repo.CancelSession(ctx, sessionID)
	if errors.Is(err, r.ErrSessionNotFound) {
		// already terminal or gone, nothing to do
		return nil
	}
	if err != nil {
		log.Printf("failed to cancel checkout session %v: %v", sessionID, err)
	}
	return err
}
