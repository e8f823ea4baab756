package service

import (
	"context"
	"strings"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/shopspring/decimal"
)

const cartFields = `
	id
	email
	items {
		uid
		quantity
		rental_from
		rental_to
		product { sku name }
		prices {
			price { value currency }
			row_total { value currency }
		}
	}
	prices {
		grand_total { value currency }
		subtotal_excluding_tax { value currency }
		rental_total { value currency }
		applied_taxes { label amount { value currency } }
	}
	billing_address { ` + addressFields + ` }
	shipping_addresses { ` + addressFields + ` }
`

const addressFields = `firstname lastname street city postcode telephone company country { code }`

type money struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

type cartAddress struct {
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Street    []string `json:"street"`
	City      string   `json:"city"`
	Postcode  string   `json:"postcode"`
	Telephone string   `json:"telephone"`
	Company   string   `json:"company"`
	Country   struct {
		Code string `json:"code"`
	} `json:"country"`
}

func (a *cartAddress) toModel() *model.Address {
	if a == nil {
		return nil
	}
	return &model.Address{
		Firstname:   a.Firstname,
		Lastname:    a.Lastname,
		Street:      a.Street,
		City:        a.City,
		Postcode:    a.Postcode,
		CountryCode: a.Country.Code,
		Telephone:   a.Telephone,
		Company:     a.Company,
	}
}

type cartPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Items []struct {
		UID        string `json:"uid"`
		Quantity   int    `json:"quantity"`
		RentalFrom string `json:"rental_from"`
		RentalTo   string `json:"rental_to"`
		Product    struct {
			SKU  string `json:"sku"`
			Name string `json:"name"`
		} `json:"product"`
		Prices struct {
			Price    money `json:"price"`
			RowTotal money `json:"row_total"`
		} `json:"prices"`
	} `json:"items"`
	Prices struct {
		GrandTotal   money `json:"grand_total"`
		Subtotal     money `json:"subtotal_excluding_tax"`
		RentalTotal  money `json:"rental_total"`
		AppliedTaxes []struct {
			Label  string `json:"label"`
			Amount money  `json:"amount"`
		} `json:"applied_taxes"`
	} `json:"prices"`
	BillingAddress    *cartAddress  `json:"billing_address"`
	ShippingAddresses []cartAddress `json:"shipping_addresses"`
}

func (p *cartPayload) toModel() *model.Cart {
	cart := &model.Cart{
		ID:             p.ID,
		Email:          p.Email,
		Items:          make([]model.CartItem, 0, len(p.Items)),
		BillingAddress: p.BillingAddress.toModel(),
		Totals: model.CartTotals{
			GrandTotal:  p.Prices.GrandTotal.Value,
			Subtotal:    p.Prices.Subtotal.Value,
			RentalTotal: p.Prices.RentalTotal.Value,
			Currency:    p.Prices.GrandTotal.Currency,
		},
	}
	if len(p.ShippingAddresses) > 0 {
		cart.ShippingAddress = p.ShippingAddresses[0].toModel()
	}
	for _, t := range p.Prices.AppliedTaxes {
		cart.Totals.AppliedTaxes = append(cart.Totals.AppliedTaxes, model.Tax{Label: t.Label, Amount: t.Amount.Value})
	}
	for _, it := range p.Items {
		cart.Items = append(cart.Items, model.CartItem{
			UID:        it.UID,
			SKU:        it.Product.SKU,
			Name:       it.Product.Name,
			Quantity:   it.Quantity,
			RentalFrom: parseDate(it.RentalFrom),
			RentalTo:   parseDate(it.RentalTo),
			UnitPrice:  it.Prices.Price.Value,
			RowTotal:   it.Prices.RowTotal.Value,
		})
	}
	return cart
}

// parseDate accepts the date-only and RFC 3339 forms the backend emits.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CartGateway wraps the remote cart queries and mutations.
type CartGateway struct {
	client *CommerceClient
}

func NewCartGateway(client *CommerceClient) *CartGateway {
	return &CartGateway{client: client}
}

// GetCart returns the signed-in customer's active cart.
func (g *CartGateway) GetCart(ctx context.Context, token string) (*model.Cart, error) {
	var out struct {
		Cart cartPayload `json:"customerCart"`
	}
	if err := g.client.Do(ctx, token, `query { customerCart { `+cartFields+` } }`, nil, &out, apperr.CodeCartFetch); err != nil {
		return nil, err
	}
	return out.Cart.toModel(), nil
}

// AddItem adds a rental line for sku over the given period.
func (g *CartGateway) AddItem(ctx context.Context, token, cartID, sku string, qty int, from, to time.Time) (*model.Cart, error) {
	if qty <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	if !to.After(from) {
		return nil, apperr.Validation("rental end must be after start")
	}
	var out struct {
		Result struct {
			Cart cartPayload `json:"cart"`
		} `json:"addProductsToCart"`
	}
	vars := map[string]any{
		"cartId": cartID,
		"items": []map[string]any{{
			"sku":         sku,
			"quantity":    qty,
			"rental_from": from.Format("2006-01-02"),
			"rental_to":   to.Format("2006-01-02"),
		}},
	}
	query := `mutation($cartId: String!, $items: [CartItemInput!]!) {
		addProductsToCart(cartId: $cartId, cartItems: $items) { cart { ` + cartFields + ` } }
	}`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeCartAdd); err != nil {
		return nil, err
	}
	return out.Result.Cart.toModel(), nil
}

// UpdateItem changes the quantity of a cart line.
func (g *CartGateway) UpdateItem(ctx context.Context, token, cartID, uid string, qty int) (*model.Cart, error) {
	if qty <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	var out struct {
		Result struct {
			Cart cartPayload `json:"cart"`
		} `json:"updateCartItems"`
	}
	vars := map[string]any{
		"input": map[string]any{
			"cart_id":    cartID,
			"cart_items": []map[string]any{{"cart_item_uid": uid, "quantity": qty}},
		},
	}
	query := `mutation($input: UpdateCartItemsInput!) { updateCartItems(input: $input) { cart { ` + cartFields + ` } } }`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeCartUpdate); err != nil {
		return nil, err
	}
	return out.Result.Cart.toModel(), nil
}

// RemoveItem drops a cart line.
func (g *CartGateway) RemoveItem(ctx context.Context, token, cartID, uid string) (*model.Cart, error) {
	var out struct {
		Result struct {
			Cart cartPayload `json:"cart"`
		} `json:"removeItemFromCart"`
	}
	vars := map[string]any{
		"input": map[string]any{"cart_id": cartID, "cart_item_uid": uid},
	}
	query := `mutation($input: RemoveItemFromCartInput!) { removeItemFromCart(input: $input) { cart { ` + cartFields + ` } } }`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeCartRemove); err != nil {
		return nil, err
	}
	return out.Result.Cart.toModel(), nil
}

// SetBillingAddress points the cart at a saved customer address.
func (g *CartGateway) SetBillingAddress(ctx context.Context, token, cartID string, addressID int) error {
	vars := map[string]any{
		"input": map[string]any{
			"cart_id":         cartID,
			"billing_address": map[string]any{"customer_address_id": addressID},
		},
	}
	query := `mutation($input: SetBillingAddressOnCartInput!) { setBillingAddressOnCart(input: $input) { cart { id } } }`
	return g.client.Do(ctx, token, query, vars, nil, apperr.CodeCartBillingAddress)
}

// SetShippingAddress points the cart at a saved customer address and returns
// the shipping methods available for it.
func (g *CartGateway) SetShippingAddress(ctx context.Context, token, cartID string, addressID int) ([]model.ShippingMethod, error) {
	var out struct {
		Result struct {
			Cart struct {
				ShippingAddresses []struct {
					Available []struct {
						CarrierCode string `json:"carrier_code"`
						MethodCode  string `json:"method_code"`
						Available   bool   `json:"available"`
					} `json:"available_shipping_methods"`
				} `json:"shipping_addresses"`
			} `json:"cart"`
		} `json:"setShippingAddressesOnCart"`
	}
	vars := map[string]any{
		"input": map[string]any{
			"cart_id":            cartID,
			"shipping_addresses": []map[string]any{{"customer_address_id": addressID}},
		},
	}
	query := `mutation($input: SetShippingAddressesOnCartInput!) {
		setShippingAddressesOnCart(input: $input) {
			cart { shipping_addresses { available_shipping_methods { carrier_code method_code available } } }
		}
	}`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeCartShippingAddress); err != nil {
		return nil, err
	}

	var methods []model.ShippingMethod
	for _, sa := range out.Result.Cart.ShippingAddresses {
		for _, m := range sa.Available {
			if m.Available {
				methods = append(methods, model.ShippingMethod{CarrierCode: m.CarrierCode, MethodCode: m.MethodCode})
			}
		}
	}
	return methods, nil
}

func (g *CartGateway) SetShippingMethod(ctx context.Context, token, cartID string, method model.ShippingMethod) error {
	if method.CarrierCode == "" || method.MethodCode == "" {
		return apperr.Failed(apperr.CodeShippingMethod, "no shipping method available")
	}
	vars := map[string]any{
		"input": map[string]any{
			"cart_id": cartID,
			"shipping_methods": []map[string]any{{
				"carrier_code": method.CarrierCode,
				"method_code":  method.MethodCode,
			}},
		},
	}
	query := `mutation($input: SetShippingMethodsOnCartInput!) { setShippingMethodsOnCart(input: $input) { cart { id } } }`
	return g.client.Do(ctx, token, query, vars, nil, apperr.CodeShippingMethod)
}

func (g *CartGateway) SetPaymentMethod(ctx context.Context, token, cartID, code string) error {
	vars := map[string]any{
		"input": map[string]any{
			"cart_id":        cartID,
			"payment_method": map[string]any{"code": code},
		},
	}
	query := `mutation($input: SetPaymentMethodOnCartInput!) { setPaymentMethodOnCart(input: $input) { cart { id } } }`
	return g.client.Do(ctx, token, query, vars, nil, apperr.CodePaymentMethod)
}

// PlaceOrder converts the cart into an order and returns the order number.
func (g *CartGateway) PlaceOrder(ctx context.Context, token, cartID string) (string, error) {
	var out struct {
		Result struct {
			Order struct {
				Number string `json:"order_number"`
			} `json:"order"`
		} `json:"placeOrder"`
	}
	vars := map[string]any{"input": map[string]any{"cart_id": cartID}}
	query := `mutation($input: PlaceOrderInput!) { placeOrder(input: $input) { order { order_number } } }`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodePlaceOrder); err != nil {
		return "", err
	}
	if out.Result.Order.Number == "" {
		return "", apperr.Failed(apperr.CodePlaceOrder, "order number missing from response")
	}
	return out.Result.Order.Number, nil
}
