package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO code an order is quoted and invoiced in.
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

func (c Currency) String() string { return string(c) }

// Lower is the form Stripe expects on invoice items.
func (c Currency) Lower() string { return strings.ToLower(string(c)) }

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyGBP, CurrencyEUR, CurrencyUSD:
		return true
	}
	return false
}

// ParseCurrency accepts any letter case and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
