package checkout

import (
	"strings"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
)

const draftIDLength = 8

// DraftContractNumber is the placeholder number printed before an order exists.
func DraftContractNumber(cartID string) string {
	id := strings.ToUpper(cartID)
	if len(id) > draftIDLength {
		id = id[:draftIDLength]
	}
	return model.DraftPrefix + id
}

// BuildDraftContract derives preview contract data from the cart and the
// signed-in customer. The owner stays blank until the order is placed.
func BuildDraftContract(cart *model.Cart, customer *model.Customer, billing *model.Address, paymentMethod string, now time.Time) model.RentalContractData {
	renter := model.ContractParty{
		Name:           customer.FullName(),
		Email:          customer.Email,
		PersonalNumber: customer.PersonalNumber(),
		Telephone:      customer.Telephone,
	}
	if billing != nil {
		renter.Address = billing.Line()
		if renter.Telephone == "" {
			renter.Telephone = billing.Telephone
		}
	}

	return model.RentalContractData{
		ContractNumber: DraftContractNumber(cart.ID),
		IssuedAt:       now.UTC().Truncate(time.Second),
		Renter:         renter,
		Items:          model.ContractItemsFromCart(cart.Items),
		Subtotal:       cart.Totals.Subtotal,
		RentalTotal:    cart.Totals.RentalTotal,
		Taxes:          append([]model.Tax(nil), cart.Totals.AppliedTaxes...),
		GrandTotal:     cart.Totals.GrandTotal,
		Currency:       cart.Totals.Currency,
		PaymentMethod:  paymentMethod,
	}
}

func contractParty(p model.Participant) model.ContractParty {
	return model.ContractParty{
		Name:           p.Name,
		Email:          p.Email,
		PersonalNumber: p.PersonalNumber,
		Telephone:      p.Telephone,
		Address:        p.Address,
	}
}
