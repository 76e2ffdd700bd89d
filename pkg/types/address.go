package types

import (
	"fmt"
	"strings"
)

// Address is the shipping/billing address snapshot stored on an order.
// It is persisted as a JSONB column, denormalized at order time so later
// profile edits never rewrite history.
type Address struct {
	FullName   string  `json:"full_name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Normalize trims whitespace and applies the default country.
func (a *Address) Normalize() {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "US"
	}
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return fmt.Errorf("address: missing full_name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	return nil
}
