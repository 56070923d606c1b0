package domain

import "time"

type CartSnapshotItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
}

// CartSnapshot is the full cart state frozen when the payment step is
// entered. The cart is never re-read after this point, so the charged amount
// cannot drift while the customer is paying.
type CartSnapshot struct {
	Items      []CartSnapshotItem `json:"items"`
	Totals     Totals             `json:"totals"`
	Currency   string             `json:"currency"`
	CapturedAt time.Time          `json:"captured_at"`
}

// ItemSummary renders a short human-readable list for gateway metadata.
func (s *CartSnapshot) ItemSummary() string {
	summary := ""
	for i, item := range s.Items {
		if i > 0 {
			summary += ", "
		}
		summary += item.ProductName
	}
	return summary
}
