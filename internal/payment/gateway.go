package payment

import "context"

// IntentStatus mirrors the gateway's confirmation outcomes.
type IntentStatus string

const (
	StatusSucceeded      IntentStatus = "succeeded"
	StatusProcessing     IntentStatus = "processing"
	StatusRequiresAction IntentStatus = "requires_action"
	StatusFailed         IntentStatus = "failed"
)

// Intent is a payment authorization handle. The client secret is the opaque
// reference handed to the payment-collection surface.
type Intent struct {
	ID           string
	ClientSecret string
}

// Metadata travels with the intent so charges are attributable to a customer
// and an item list on the gateway side.
type Metadata struct {
	CustomerEmail string
	CustomerName  string
	ItemSummary   string
	CheckoutID    string
}

// Confirmation is the result of asking the gateway to confirm an intent.
// Err is set only for the failed status.
type Confirmation struct {
	Status IntentStatus
	Err    *GatewayError
}

// Gateway is the storefront's port to the external payment provider. Amounts
// are in minor currency units.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, meta Metadata) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (*Confirmation, error)
}
