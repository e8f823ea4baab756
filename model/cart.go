package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID              string     `json:"id"`
	Email           string     `json:"email,omitempty"`
	Items           []CartItem `json:"items"`
	Totals          CartTotals `json:"totals"`
	BillingAddress  *Address   `json:"billing_address,omitempty"`
	ShippingAddress *Address   `json:"shipping_address,omitempty"`
}

type CartItem struct {
	UID        string          `json:"uid"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	RentalFrom time.Time       `json:"rental_from"`
	RentalTo   time.Time       `json:"rental_to"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	RowTotal   decimal.Decimal `json:"row_total"`
}

// TotalDays is the rental length: the day difference rounded up, at least one.
func (i CartItem) TotalDays() int {
	return RentalDays(i.RentalFrom, i.RentalTo)
}

func RentalDays(from, to time.Time) int {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return 1
	}
	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

type Tax struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

type CartTotals struct {
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	RentalTotal  decimal.Decimal `json:"rental_total"`
	AppliedTaxes []Tax           `json:"applied_taxes,omitempty"`
	Currency     string          `json:"currency"`
}

// ShippingMethod selects a carrier/method pair on the cart.
type ShippingMethod struct {
	CarrierCode string `json:"carrier_code"`
	MethodCode  string `json:"method_code"`
}
