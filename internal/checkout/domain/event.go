package domain

import "time"

// OrderCompletedEvent is the outbox payload published for every completed
// checkout session.
type OrderCompletedEvent struct {
	CheckoutID      string             `json:"checkout_id"`
	Email           string             `json:"email"`
	Name            string             `json:"name"`
	Items           []CartSnapshotItem `json:"items"`
	Totals          Totals             `json:"totals"`
	Currency        string             `json:"currency"`
	PaymentIntentID string             `json:"payment_intent_id"`
	CompletedAt     time.Time          `json:"completed_at"`
}
