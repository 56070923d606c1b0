package domain

import (
	"fmt"
	"strings"
)

// ShippingDetails holds the contact and address fields collected in the
// shipping step. Phone and the second address line are optional, everything
// else is required.
type ShippingDetails struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone,omitempty"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

// ValidationError lists every missing or malformed field so the shipping form
// can surface all of them at once.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	return fmt.Sprintf("invalid shipping details: %s", strings.Join(names, ", "))
}

// Validate fails closed: any missing required field blocks the transition to
// the payment step.
func (d *ShippingDetails) Validate() error {
	fields := map[string]string{}

	required := map[string]string{
		"email":       d.Email,
		"first_name":  d.FirstName,
		"last_name":   d.LastName,
		"address1":    d.Address1,
		"city":        d.City,
		"region":      d.Region,
		"postal_code": d.PostalCode,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[name] = "required"
		}
	}

	if _, ok := fields["email"]; !ok && !looksLikeEmail(d.Email) {
		fields["email"] = "invalid email address"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (d *ShippingDetails) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 {
		return false
	}
	dot := strings.LastIndex(s, ".")
	return dot > at+1 && dot < len(s)-1
}
