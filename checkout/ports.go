package checkout

import (
	"context"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/signing"
)

type CartGateway interface {
	GetCart(ctx context.Context, token string) (*model.Cart, error)
	SetBillingAddress(ctx context.Context, token, cartID string, addressID int) error
	SetShippingAddress(ctx context.Context, token, cartID string, addressID int) ([]model.ShippingMethod, error)
	SetShippingMethod(ctx context.Context, token, cartID string, method model.ShippingMethod) error
	SetPaymentMethod(ctx context.Context, token, cartID, code string) error
	PlaceOrder(ctx context.Context, token, cartID string) (string, error)
}

type CustomerGateway interface {
	GetCustomer(ctx context.Context, token string) (*model.Customer, error)
	CreateAddress(ctx context.Context, token string, addr model.Address) (*model.Address, error)
	UpdateCustomAttributes(ctx context.Context, token string, attrs []model.CustomAttribute) (*model.Customer, error)
	GetOrder(ctx context.Context, token, number string) (*model.OrderDetail, error)
}

// Contracts is the part of the signing orchestrator checkout drives.
type Contracts interface {
	GeneratePreview(data *model.RentalContractData, locale string) (string, error)
	CreateAndUploadContract(ctx context.Context, in signing.CreateContractInput) (string, error)
}

type Conversations interface {
	EnsureForOrder(ctx context.Context, orderID string, owner, receiver model.Participant) (*model.Conversation, error)
}
