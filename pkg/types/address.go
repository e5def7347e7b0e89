package types

import "strings"

// Address is the postal address stored as jsonb on companies, orders and invoices.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// AddressOverride carries the subset of address fields an admin replaced during review.
// Nil fields keep the submitted value.
type AddressOverride struct {
	Line1      *string `json:"line1,omitempty" validate:"omitempty,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=120"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=120"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country    *string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// IsEmpty reports whether no field was supplied.
func (o *AddressOverride) IsEmpty() bool {
	if o == nil {
		return true
	}
	return o.Line1 == nil && o.Line2 == nil && o.City == nil &&
		o.State == nil && o.PostalCode == nil && o.Country == nil
}

// Apply returns base with every supplied override field replacing its counterpart.
func (o *AddressOverride) Apply(base Address) Address {
	if o == nil {
		return base
	}
	out := base
	if o.Line1 != nil {
		out.Line1 = strings.TrimSpace(*o.Line1)
	}
	if o.Line2 != nil {
		out.Line2 = strings.TrimSpace(*o.Line2)
	}
	if o.City != nil {
		out.City = strings.TrimSpace(*o.City)
	}
	if o.State != nil {
		out.State = strings.TrimSpace(*o.State)
	}
	if o.PostalCode != nil {
		out.PostalCode = strings.TrimSpace(*o.PostalCode)
	}
	if o.Country != nil {
		out.Country = strings.ToUpper(strings.TrimSpace(*o.Country))
	}
	return out
}
