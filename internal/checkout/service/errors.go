package service

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrSessionClosed     = errors.New("checkout session is closed")
	ErrShippingRequired  = errors.New("shipping details must be submitted before payment")
	ErrPaymentNotReady   = errors.New("no payment intent exists for this session")

	// ErrConfirmationPending is the elevated-severity case: the gateway
	// charged the customer but the order could not be confirmed. The cart is
	// left intact and the session stays open for manual reconciliation.
	ErrConfirmationPending = errors.New("payment succeeded but order confirmation failed, contact support")
)
