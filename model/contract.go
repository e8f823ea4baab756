package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DraftPrefix marks contract numbers issued before an order number exists.
const DraftPrefix = "DRAFT-"

// ContractParty is one signing side as printed on the contract.
type ContractParty struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PersonalNumber string `json:"personal_number,omitempty"`
	Telephone      string `json:"telephone,omitempty"`
	Address        string `json:"address,omitempty"`
}

type ContractItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Days      int             `json:"days"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	RowTotal  decimal.Decimal `json:"row_total"`
}

// RentalContractData is everything the PDF generator prints.
type RentalContractData struct {
	ContractNumber  string          `json:"contract_number"`
	OrderNumber     string          `json:"order_number,omitempty"`
	IssuedAt        time.Time       `json:"issued_at"`
	Owner           ContractParty   `json:"owner"`
	Renter          ContractParty   `json:"renter"`
	Items           []ContractItem  `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	RentalTotal     decimal.Decimal `json:"rental_total"`
	Taxes           []Tax           `json:"taxes,omitempty"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	OwnerSignature  *Signature      `json:"owner_signature,omitempty"`
	RenterSignature *Signature      `json:"renter_signature,omitempty"`
}

func (c *RentalContractData) IsDraft() bool {
	return c.OrderNumber == "" || strings.HasPrefix(c.ContractNumber, DraftPrefix)
}

// Finalized returns a copy bound to a placed order: the draft number and the
// placeholder owner are replaced by the real ones.
func (c RentalContractData) Finalized(orderNumber string, owner ContractParty) RentalContractData {
	out := c
	out.ContractNumber = orderNumber
	out.OrderNumber = orderNumber
	out.Owner = owner
	out.Items = append([]ContractItem(nil), c.Items...)
	return out
}

// WithSignatures returns a copy carrying the given signatures.
func (c RentalContractData) WithSignatures(owner, renter *Signature) RentalContractData {
	out := c
	out.OwnerSignature = owner
	out.RenterSignature = renter
	return out
}

// ContractItemsFromCart converts cart lines into contract lines.
func ContractItemsFromCart(items []CartItem) []ContractItem {
	out := make([]ContractItem, 0, len(items))
	for _, it := range items {
		out = append(out, ContractItem{
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			From:      it.RentalFrom,
			To:        it.RentalTo,
			Days:      it.TotalDays(),
			UnitPrice: it.UnitPrice,
			RowTotal:  it.RowTotal,
		})
	}
	return out
}
