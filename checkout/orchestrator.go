// Package checkout drives a customer's cart through address, payment and
// contract signing to a placed order.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
	"github.com/Lorent-Bloom/lorentbloom/backend/signing"
)

const orderSuccessPath = "/order-success/"

type Orchestrator struct {
	cart          CartGateway
	customers     CustomerGateway
	contracts     Contracts
	conversations Conversations
	now           func() time.Time
}

// NewOrchestrator wires the checkout flow. conversations may be nil.
func NewOrchestrator(cart CartGateway, customers CustomerGateway, contracts Contracts, conversations Conversations) *Orchestrator {
	return &Orchestrator{
		cart:          cart,
		customers:     customers,
		contracts:     contracts,
		conversations: conversations,
		now:           time.Now,
	}
}

// SelectAddresses records the chosen customer address ids. Changing either
// one invalidates the previous cart sync.
func (o *Orchestrator) SelectAddresses(s *Session, billingID, shippingID int) error {
	if billingID <= 0 || shippingID <= 0 {
		return apperr.Validation("billing and shipping address are required")
	}
	if s.BillingAddressID != billingID || s.ShippingAddressID != shippingID {
		s.AddressesSynced = ""
	}
	s.BillingAddressID = billingID
	s.ShippingAddressID = shippingID
	s.Step = StepAddress
	return nil
}

// AddressInput is a new customer address plus an optional personal number
// captured on the same form.
type AddressInput struct {
	Address        model.Address `json:"address"`
	PersonalNumber string        `json:"personal_number,omitempty"`
	UseForBilling  bool          `json:"use_for_billing"`
	UseForShipping bool          `json:"use_for_shipping"`
}

// CreateAddress adds an address to the customer's address book and selects
// it where requested. The personal number is saved only when the customer
// has none yet; that save never fails the call.
func (o *Orchestrator) CreateAddress(ctx context.Context, token string, s *Session, in AddressInput) (*model.Address, error) {
	addr, err := o.customers.CreateAddress(ctx, token, in.Address)
	if err != nil {
		return nil, err
	}

	billing, shipping := s.BillingAddressID, s.ShippingAddressID
	if in.UseForBilling {
		billing = addr.ID
	}
	if in.UseForShipping {
		shipping = addr.ID
	}
	if billing != s.BillingAddressID || shipping != s.ShippingAddressID {
		s.AddressesSynced = ""
	}
	s.BillingAddressID, s.ShippingAddressID = billing, shipping

	if pn := strings.TrimSpace(in.PersonalNumber); pn != "" {
		o.savePersonalNumber(ctx, token, pn)
	}
	return addr, nil
}

// ConfirmAddress pushes the selected addresses to the cart unless the same
// selection was already pushed, then moves on to payment.
func (o *Orchestrator) ConfirmAddress(ctx context.Context, token string, s *Session) error {
	if s.BillingAddressID <= 0 || s.ShippingAddressID <= 0 {
		return apperr.Validation("billing and shipping address are required")
	}

	cartID, err := o.cartID(ctx, token, s)
	if err != nil {
		return err
	}

	fp := fingerprint(cartID, s.BillingAddressID, s.ShippingAddressID)
	if s.AddressesSynced != fp {
		if err := o.cart.SetBillingAddress(ctx, token, cartID, s.BillingAddressID); err != nil {
			s.Step = StepAddress
			return err
		}
		methods, err := o.cart.SetShippingAddress(ctx, token, cartID, s.ShippingAddressID)
		if err != nil {
			s.Step = StepAddress
			return err
		}
		s.ShippingMethod = pickShippingMethod(s.ShippingMethod, methods)
		s.AddressesSynced = fp
		logger.Info(ctx, "checkout addresses synced", "cart_id", cartID)
	}

	s.Step = StepPayment
	return nil
}

// ConfirmPayment records the payment method. Nothing is sent to the cart
// until the order is placed.
func (o *Orchestrator) ConfirmPayment(s *Session, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return apperr.Validation("payment method is required")
	}
	if s.AddressesSynced == "" {
		return apperr.Validation("confirm addresses first")
	}
	s.PaymentMethod = code
	s.Step = StepContract
	return nil
}

// GeneratePreview builds draft contract data from the current cart and
// customer and returns the rendered preview as a PDF data URL.
func (o *Orchestrator) GeneratePreview(ctx context.Context, token string, s *Session, locale string) (string, error) {
	var (
		cart     *model.Cart
		customer *model.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := o.cart.GetCart(gctx, token)
		cart = c
		return err
	})
	g.Go(func() error {
		c, err := o.customers.GetCustomer(gctx, token)
		customer = c
		return err
	})
	if err := g.Wait(); err != nil {
		s.Preview = nil
		return "", err
	}

	s.CartID = cart.ID
	data := BuildDraftContract(cart, customer, customer.FindAddress(s.BillingAddressID), s.PaymentMethod, o.now())
	url, err := o.contracts.GeneratePreview(&data, locale)
	if err != nil {
		logger.Warn(ctx, "contract preview failed", "error", err)
		s.Preview = nil
		return "", err
	}

	s.Preview = &data
	return url, nil
}

// SignatureInput is the renter's signature captured on the contract step.
type SignatureInput struct {
	Signature     model.Signature `json:"signature"`
	AcceptedTerms bool            `json:"accepted_terms"`
}

func (o *Orchestrator) CaptureSignature(s *Session, in SignatureInput) error {
	if in.Signature.ImageData() == "" {
		return apperr.Validation("signature image is required")
	}
	if !in.Signature.Method.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown signature method %q", in.Signature.Method))
	}
	sig := in.Signature
	s.Signature = &sig
	s.AcceptedTerms = in.AcceptedTerms
	return nil
}

// ReadyToPlace reports whether the contract step is complete.
func (o *Orchestrator) ReadyToPlace(s *Session) bool {
	return s.Preview != nil && s.Signature != nil && s.AcceptedTerms
}

// PlaceResult is returned once the order exists.
type PlaceResult struct {
	OrderNumber string `json:"order_number"`
	Redirect    string `json:"redirect"`
	DocumentID  string `json:"document_id,omitempty"`
}

type placeStep struct {
	name PlaceStep
	key  func() string
	run  func() error
}

// PlaceOrder configures the cart and places the order. The cart steps run in
// a fixed order and stop at the first failure. Each finished step is recorded
// in the session with a fingerprint of its input, so a retry resumes at the
// first step that has not run with the current input. A failed retry can
// leave the cart partially configured; the next attempt overwrites it.
func (o *Orchestrator) PlaceOrder(ctx context.Context, token string, s *Session, locale string) (*PlaceResult, error) {
	if s.OrderNumber != "" {
		return placed(s.OrderNumber, ""), nil
	}
	if s.Signature == nil || !s.AcceptedTerms {
		return nil, apperr.Validation("contract must be signed and terms accepted")
	}
	if !o.ReadyToPlace(s) {
		return nil, apperr.Validation("contract preview must be generated before the order is placed")
	}
	if s.PaymentMethod == "" {
		return nil, apperr.Validation("payment method is required")
	}
	if s.BillingAddressID <= 0 || s.ShippingAddressID <= 0 {
		return nil, apperr.Validation("billing and shipping address are required")
	}

	cartID, err := o.cartID(ctx, token, s)
	if err != nil {
		return nil, err
	}
	if s.Completed == nil {
		s.Completed = make(map[PlaceStep]string)
	}

	steps := []placeStep{
		{
			name: PlaceBillingAddress,
			key:  func() string { return fingerprint(cartID, s.BillingAddressID) },
			run: func() error {
				return o.cart.SetBillingAddress(ctx, token, cartID, s.BillingAddressID)
			},
		},
		{
			name: PlaceShippingAddress,
			key:  func() string { return fingerprint(cartID, s.ShippingAddressID) },
			run: func() error {
				methods, err := o.cart.SetShippingAddress(ctx, token, cartID, s.ShippingAddressID)
				if err != nil {
					return err
				}
				s.ShippingMethod = pickShippingMethod(s.ShippingMethod, methods)
				return nil
			},
		},
		{
			name: PlaceShippingMethod,
			key: func() string {
				if s.ShippingMethod == nil {
					return fingerprint(cartID)
				}
				return fingerprint(cartID, s.ShippingMethod.CarrierCode, s.ShippingMethod.MethodCode)
			},
			run: func() error {
				if s.ShippingMethod == nil {
					return apperr.Failed(apperr.CodeShippingMethod, "no shipping method available")
				}
				return o.cart.SetShippingMethod(ctx, token, cartID, *s.ShippingMethod)
			},
		},
		{
			name: PlacePaymentMethod,
			key:  func() string { return fingerprint(cartID, s.PaymentMethod) },
			run: func() error {
				return o.cart.SetPaymentMethod(ctx, token, cartID, s.PaymentMethod)
			},
		},
	}

	for _, step := range steps {
		key := step.key()
		if s.Completed[step.name] == key {
			logger.Debug(ctx, "skipping completed checkout step", "step", step.name)
			continue
		}
		if err := step.run(); err != nil {
			logger.Warn(ctx, "checkout step failed", "step", step.name, "error", err)
			return nil, err
		}
		// shipping address may pick the method, so re-key after running
		s.Completed[step.name] = step.key()
	}

	number, err := o.cart.PlaceOrder(ctx, token, cartID)
	if err != nil {
		logger.Warn(ctx, "place order failed", "error", err)
		return nil, err
	}

	s.OrderNumber = number
	s.Step = StepPlaced
	ctx = logger.WithOrder(ctx, number)
	logger.Info(ctx, "order placed", "cart_id", cartID)

	return placed(number, o.afterOrder(ctx, token, s, number, locale)), nil
}

// afterOrder runs the post-placement work. None of it can fail the order.
func (o *Orchestrator) afterOrder(ctx context.Context, token string, s *Session, number, locale string) string {
	var documentID string

	order, err := o.customers.GetOrder(ctx, token, number)
	if err != nil {
		logger.Error(ctx, "failed to load placed order", "error", err)
	}

	if order != nil && s.Signature != nil && s.Preview != nil {
		final := s.Preview.Finalized(number, contractParty(order.Owner))
		if !order.CreatedAt.IsZero() {
			final.IssuedAt = order.CreatedAt.UTC()
		}
		final.Renter = mergeParty(final.Renter, contractParty(order.Renter))
		if pn := s.Signature.PersonalNumber; pn != "" {
			final.Renter.PersonalNumber = pn
		}

		documentID, err = o.contracts.CreateAndUploadContract(ctx, signing.CreateContractInput{
			OrderID:         number,
			Contract:        final,
			RenterSignature: s.Signature,
			Locale:          locale,
		})
		if err != nil {
			logger.Error(ctx, "failed to create contract document", "error", err, "document_id", documentID)
		}
	}

	if s.Signature != nil && strings.TrimSpace(s.Signature.PersonalNumber) != "" {
		o.savePersonalNumber(ctx, token, strings.TrimSpace(s.Signature.PersonalNumber))
	}

	if order != nil && o.conversations != nil {
		if _, err := o.conversations.EnsureForOrder(ctx, number, order.Owner, order.Renter); err != nil {
			logger.Error(ctx, "failed to create order conversation", "error", err)
		}
	}

	return documentID
}

// savePersonalNumber stores pn on the customer unless one is already set.
// Errors are logged only.
func (o *Orchestrator) savePersonalNumber(ctx context.Context, token, pn string) {
	customer, err := o.customers.GetCustomer(ctx, token)
	if err != nil {
		logger.Warn(ctx, "failed to load customer for personal number", "error", err)
		return
	}
	if customer.PersonalNumber() != "" {
		return
	}
	_, err = o.customers.UpdateCustomAttributes(ctx, token, []model.CustomAttribute{
		{Code: model.AttrPersonalNumber, Value: pn},
	})
	if err != nil {
		logger.Warn(ctx, "failed to save personal number", "error", err)
		return
	}
	logger.Info(ctx, "personal number saved")
}

func (o *Orchestrator) cartID(ctx context.Context, token string, s *Session) (string, error) {
	if s.CartID != "" {
		return s.CartID, nil
	}
	cart, err := o.cart.GetCart(ctx, token)
	if err != nil {
		return "", err
	}
	s.CartID = cart.ID
	return cart.ID, nil
}

func placed(number, documentID string) *PlaceResult {
	return &PlaceResult{
		OrderNumber: number,
		Redirect:    orderSuccessPath + number,
		DocumentID:  documentID,
	}
}

// pickShippingMethod keeps current when the cart still offers it, otherwise
// takes the first available method.
func pickShippingMethod(current *model.ShippingMethod, available []model.ShippingMethod) *model.ShippingMethod {
	if len(available) == 0 {
		return nil
	}
	if current != nil {
		for _, m := range available {
			if m == *current {
				return current
			}
		}
	}
	m := available[0]
	return &m
}

func mergeParty(base, from model.ContractParty) model.ContractParty {
	if base.Name == "" {
		base.Name = from.Name
	}
	if base.Email == "" {
		base.Email = from.Email
	}
	if base.PersonalNumber == "" {
		base.PersonalNumber = from.PersonalNumber
	}
	if base.Telephone == "" {
		base.Telephone = from.Telephone
	}
	if base.Address == "" {
		base.Address = from.Address
	}
	return base
}

func fingerprint(parts ...any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}
