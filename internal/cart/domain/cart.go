package domain

import "time"

// LineItem is one product entry in the cart. UnitPrice is in minor units.
type LineItem struct {
	ProductID string    `bson:"product_id" json:"product_id"`
	Name      string    `bson:"name" json:"name"`
	UnitPrice int64     `bson:"unit_price" json:"unit_price"`
	ImageURL  string    `bson:"image_url" json:"image_url"`
	Category  string    `bson:"category" json:"category"`
	Quantity  int64     `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Cart is the session-scoped aggregate. Version counts successful writes and
// backs the repository's compare-and-swap guard.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	SessionID string     `bson:"session_id" json:"session_id"`
	Items     []LineItem `bson:"items" json:"items"`
	Version   int64      `bson:"version" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// Subtotal is always derived from the items, never stored.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * item.Quantity
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges quantity into an existing line with the same product id,
// otherwise appends a new line. A quantity below 1 is treated as 1.
func (c *Cart) AddItem(item LineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	now := time.Now()
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.UpdatedAt = now
			return
		}
	}
	item.AddedAt = now
	c.Items = append(c.Items, item)
	c.UpdatedAt = now
}

// RemoveItem drops the line with the given product id. Absent ids are a no-op.
func (c *Cart) RemoveItem(productID string) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// SetQuantity sets the quantity for an existing line. A quantity of zero or
// below removes the line; unknown ids are a no-op.
func (c *Cart) SetQuantity(productID string, quantity int64) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// Clear empties the cart. Used after a completed order or an explicit
// clear action.
func (c *Cart) Clear() {
	c.Items = nil
	c.UpdatedAt = time.Now()
}
