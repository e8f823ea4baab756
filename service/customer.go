package service

import (
	"context"
	"strings"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
)

const customerFields = `
	id
	email
	firstname
	lastname
	telephone
	addresses { id firstname lastname street city postcode telephone company country_code }
	custom_attributes { attribute_code value }
`

// CustomerGateway covers token issuance and the customer profile.
type CustomerGateway struct {
	client *CommerceClient
}

func NewCustomerGateway(client *CommerceClient) *CustomerGateway {
	return &CustomerGateway{client: client}
}

// GenerateToken exchanges credentials for a customer token.
func (g *CustomerGateway) GenerateToken(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", apperr.Validation("email and password are required")
	}
	var out struct {
		Result struct {
			Token string `json:"token"`
		} `json:"generateCustomerToken"`
	}
	vars := map[string]any{"email": email, "password": password}
	query := `mutation($email: String!, $password: String!) { generateCustomerToken(email: $email, password: $password) { token } }`
	if err := g.client.Do(ctx, "", query, vars, &out, apperr.CodeSignIn); err != nil {
		// bad credentials come back as an authorization error; they are not an expired session
		if apperr.IsSessionExpired(err) {
			return "", apperr.Failed(apperr.CodeSignIn, apperr.Public(err))
		}
		return "", err
	}
	if out.Result.Token == "" {
		return "", apperr.Failed(apperr.CodeSignIn, "empty token")
	}
	return out.Result.Token, nil
}

// RevokeToken invalidates token on the backend.
func (g *CustomerGateway) RevokeToken(ctx context.Context, token string) error {
	query := `mutation { revokeCustomerToken { result } }`
	return g.client.Do(ctx, token, query, nil, nil, apperr.CodeSignOut)
}

func (g *CustomerGateway) GetCustomer(ctx context.Context, token string) (*model.Customer, error) {
	var out struct {
		Customer model.Customer `json:"customer"`
	}
	if err := g.client.Do(ctx, token, `query { customer { `+customerFields+` } }`, nil, &out, apperr.CodeCustomerFetch); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

// CreateAddress saves a new address on the customer's address book.
func (g *CustomerGateway) CreateAddress(ctx context.Context, token string, addr model.Address) (*model.Address, error) {
	if len(addr.Street) == 0 || addr.City == "" || addr.CountryCode == "" {
		return nil, apperr.Validation("street, city and country are required")
	}
	var out struct {
		Address model.Address `json:"createCustomerAddress"`
	}
	vars := map[string]any{
		"input": map[string]any{
			"firstname":    addr.Firstname,
			"lastname":     addr.Lastname,
			"street":       addr.Street,
			"city":         addr.City,
			"postcode":     addr.Postcode,
			"country_code": addr.CountryCode,
			"telephone":    addr.Telephone,
			"company":      addr.Company,
		},
	}
	query := `mutation($input: CustomerAddressInput!) {
		createCustomerAddress(input: $input) { id firstname lastname street city postcode telephone company country_code }
	}`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeAddressCreate); err != nil {
		return nil, err
	}
	return &out.Address, nil
}

// UpdateCustomAttributes writes custom attributes onto the customer record.
func (g *CustomerGateway) UpdateCustomAttributes(ctx context.Context, token string, attrs []model.CustomAttribute) (*model.Customer, error) {
	var out struct {
		Result struct {
			Customer model.Customer `json:"customer"`
		} `json:"updateCustomerV2"`
	}
	vars := map[string]any{"input": map[string]any{"custom_attributes": attrs}}
	query := `mutation($input: CustomerUpdateInput!) { updateCustomerV2(input: $input) { customer { ` + customerFields + ` } } }`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeCustomerUpdate); err != nil {
		return nil, err
	}
	return &out.Result.Customer, nil
}

// GetOrder loads a placed order of the signed-in customer, including the
// listing owner's identity.
func (g *CustomerGateway) GetOrder(ctx context.Context, token, number string) (*model.OrderDetail, error) {
	var out struct {
		Customer struct {
			Email            string                  `json:"email"`
			Firstname        string                  `json:"firstname"`
			Lastname         string                  `json:"lastname"`
			Telephone        string                  `json:"telephone"`
			CustomAttributes []model.CustomAttribute `json:"custom_attributes"`
			Orders           struct {
				Items []struct {
					Number    string            `json:"number"`
					OrderDate string            `json:"order_date"`
					Owner     model.Participant `json:"owner"`
					Shipping  *cartAddress      `json:"shipping_address"`
				} `json:"items"`
			} `json:"orders"`
		} `json:"customer"`
	}
	vars := map[string]any{"number": number}
	query := `query($number: String!) {
		customer {
			email firstname lastname telephone
			custom_attributes { attribute_code value }
			orders(filter: { number: { eq: $number } }) {
				items {
					number
					order_date
					owner { name email personal_number telephone address }
					shipping_address { ` + addressFields + ` }
				}
			}
		}
	}`
	if err := g.client.Do(ctx, token, query, vars, &out, apperr.CodeOrderFetch); err != nil {
		return nil, err
	}
	if len(out.Customer.Orders.Items) == 0 {
		return nil, apperr.NotFound(apperr.CodeOrderFetch, "order "+number+" not found")
	}

	o := out.Customer.Orders.Items[0]
	renter := model.Customer{
		Email:            out.Customer.Email,
		Firstname:        out.Customer.Firstname,
		Lastname:         out.Customer.Lastname,
		CustomAttributes: out.Customer.CustomAttributes,
	}
	return &model.OrderDetail{
		Number:    o.Number,
		CreatedAt: parseDate(o.OrderDate),
		Owner:     o.Owner,
		Renter: model.Participant{
			Name:           renter.FullName(),
			Email:          renter.Email,
			PersonalNumber: renter.PersonalNumber(),
			Telephone:      out.Customer.Telephone,
			Address:        o.Shipping.toModel().Line(),
		},
	}, nil
}
