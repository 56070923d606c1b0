package domain

import "time"

// CheckoutSession is the lifetime of one attempt to convert a cart into a
// paid order.
type CheckoutSession struct {
	ID            string
	CartSessionID string
	Step          Step
	Status        CheckoutStatus
	Shipping      *ShippingDetails
	Snapshot      *CartSnapshot
	PaymentIntent string
	ClientSecret  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPaymentHandle reports whether a payment intent was already obtained for
// this session. Re-entering the payment step must not request a second one
// while the snapshot total is unchanged.
func (s *CheckoutSession) HasPaymentHandle() bool {
	return s.PaymentIntent != "" && s.ClientSecret != ""
}
