package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/checkout"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/signing"
)

type stubCart struct {
	mu     sync.Mutex
	fail   map[string]error
	placed int
}

func (s *stubCart) err(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[name]
}

func (s *stubCart) GetCart(context.Context, string) (*model.Cart, error) {
	return &model.Cart{ID: "cart0001xyz", Totals: model.CartTotals{Currency: "SEK"}}, nil
}

func (s *stubCart) SetBillingAddress(context.Context, string, string, int) error {
	return s.err("billing")
}

func (s *stubCart) SetShippingAddress(context.Context, string, string, int) ([]model.ShippingMethod, error) {
	if err := s.err("shipping"); err != nil {
		return nil, err
	}
	return []model.ShippingMethod{{CarrierCode: "pickup", MethodCode: "store"}}, nil
}

func (s *stubCart) SetShippingMethod(context.Context, string, string, model.ShippingMethod) error {
	return s.err("shipping_method")
}

func (s *stubCart) SetPaymentMethod(context.Context, string, string, string) error {
	return s.err("payment")
}

func (s *stubCart) PlaceOrder(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed++
	return "000000042", nil
}

type stubCustomers struct{}

func (stubCustomers) GetCustomer(context.Context, string) (*model.Customer, error) {
	return &model.Customer{Email: "renter@example.com", Firstname: "Rita", Addresses: []model.Address{{ID: 7, City: "Lund"}}}, nil
}

func (stubCustomers) CreateAddress(_ context.Context, _ string, addr model.Address) (*model.Address, error) {
	addr.ID = 8
	return &addr, nil
}

func (stubCustomers) UpdateCustomAttributes(context.Context, string, []model.CustomAttribute) (*model.Customer, error) {
	return &model.Customer{}, nil
}

func (stubCustomers) GetOrder(context.Context, string, string) (*model.OrderDetail, error) {
	return &model.OrderDetail{
		Number: "000000042",
		Owner:  model.Participant{Name: "Olle Owner", Email: "owner@example.com"},
		Renter: model.Participant{Name: "Rita Renter", Email: "renter@example.com"},
	}, nil
}

type stubContracts struct{}

func (stubContracts) GeneratePreview(data *model.RentalContractData, _ string) (string, error) {
	return "data:application/pdf;base64," + data.ContractNumber, nil
}

func (stubContracts) CreateAndUploadContract(context.Context, signing.CreateContractInput) (string, error) {
	return "doc-1", nil
}

func newCheckoutRouter(cart *stubCart) *gin.Engine {
	cfg := testAuthConfig()
	orch := checkout.NewOrchestrator(cart, stubCustomers{}, stubContracts{}, nil)
	h := NewCheckoutHandler(orch, checkout.NewSessions(checkout.NewMemorySessionStore()), cfg)

	router := gin.New()
	g := router.Group("/api/checkout", middleware.AuthMiddleware(cfg))
	g.GET("", h.Get)
	g.POST("/addresses", h.ConfirmAddresses)
	g.POST("/addresses/new", h.CreateAddress)
	g.POST("/payment", h.ConfirmPayment)
	g.POST("/preview", h.Preview)
	g.POST("/signature", h.Sign)
	g.POST("/place", h.PlaceOrder)
	return router
}

func TestCheckoutHandlerFlow(t *testing.T) {
	cart := &stubCart{fail: map[string]error{}}
	router := newCheckoutRouter(cart)
	cookie := sessionCookie(t, testAuthConfig(), "renter@example.com")

	steps := []struct {
		method   string
		path     string
		body     any
		wantStep string
	}{
		{"POST", "/api/checkout/addresses", gin.H{"billing_address_id": 7, "shipping_address_id": 7}, "payment"},
		{"POST", "/api/checkout/payment", gin.H{"method": "checkmo"}, "contract"},
		{"POST", "/api/checkout/signature", gin.H{"signature": gin.H{"image": "aGVsbG8=", "method": "type"}, "accepted_terms": true}, "contract"},
	}
	for _, st := range steps {
		w := doRequest(t, router, st.method, st.path, st.body, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d: %s", st.path, w.Code, w.Body.String())
		}
		if body := decodeBody(t, w); body["step"] != st.wantStep {
			t.Fatalf("%s: expected step %s, got %v", st.path, st.wantStep, body["step"])
		}
	}

	w := doRequest(t, router, "POST", "/api/checkout/preview", gin.H{"locale": "sv"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected preview, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["preview_url"] != "data:application/pdf;base64,DRAFT-CART0001" {
		t.Errorf("Unexpected preview url %v", body["preview_url"])
	}
	if view := body["checkout"].(map[string]any); view["ready_to_place"] != true {
		t.Errorf("Expected session ready to place, got %v", view)
	}

	w = doRequest(t, router, "POST", "/api/checkout/place", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected order placed, got %d: %s", w.Code, w.Body.String())
	}
	body = decodeBody(t, w)
	if body["order_number"] != "000000042" || body["redirect"] != "/order-success/000000042" {
		t.Errorf("Unexpected place result %v", body)
	}

	w = doRequest(t, router, "GET", "/api/checkout", nil, cookie)
	if body := decodeBody(t, w); body["step"] != "address" {
		t.Errorf("Expected a fresh session after placement, got %v", body)
	}
}

func TestCheckoutHandlerSessionExpired(t *testing.T) {
	cart := &stubCart{fail: map[string]error{"billing": apperr.SessionExpired("The current customer isn't authorized.")}}
	router := newCheckoutRouter(cart)
	cookie := sessionCookie(t, testAuthConfig(), "renter@example.com")

	w := doRequest(t, router, "POST", "/api/checkout/addresses", gin.H{"billing_address_id": 7, "shipping_address_id": 7}, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["code"] != "SESSION_EXPIRED" || body["redirect"] != "/sign-in" {
		t.Errorf("Unexpected body %v", body)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "session_token=;") {
		t.Error("Expected session cookie to be cleared")
	}
}

func TestCheckoutHandlerPlaceOrderFailureKeepsSession(t *testing.T) {
	cart := &stubCart{fail: map[string]error{}}
	router := newCheckoutRouter(cart)
	cookie := sessionCookie(t, testAuthConfig(), "renter@example.com")

	doRequest(t, router, "POST", "/api/checkout/addresses", gin.H{"billing_address_id": 7, "shipping_address_id": 7}, cookie)
	doRequest(t, router, "POST", "/api/checkout/payment", gin.H{"method": "checkmo"}, cookie)
	doRequest(t, router, "POST", "/api/checkout/preview", nil, cookie)
	doRequest(t, router, "POST", "/api/checkout/signature", gin.H{"signature": gin.H{"image": "aGVsbG8=", "method": "draw"}, "accepted_terms": true}, cookie)

	cart.mu.Lock()
	cart.fail["shipping_method"] = apperr.Failed(apperr.CodeShippingMethod, "carrier unavailable")
	cart.mu.Unlock()

	w := doRequest(t, router, "POST", "/api/checkout/place", nil, cookie)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "SHIPPING_METHOD_FAILED" {
		t.Errorf("Unexpected body %v", body)
	}
	if cart.placed != 0 {
		t.Errorf("Expected no order placement, got %d", cart.placed)
	}

	w = doRequest(t, router, "GET", "/api/checkout", nil, cookie)
	if body := decodeBody(t, w); body["ready_to_place"] != true {
		t.Errorf("Expected session to survive the failure, got %v", body)
	}
}

func TestCheckoutHandlerValidation(t *testing.T) {
	router := newCheckoutRouter(&stubCart{fail: map[string]error{}})
	cookie := sessionCookie(t, testAuthConfig(), "renter@example.com")

	tests := []struct {
		name string
		path string
		body any
	}{
		{"missing addresses", "/api/checkout/addresses", gin.H{"billing_address_id": 7}},
		{"payment before address", "/api/checkout/payment", gin.H{"method": "checkmo"}},
		{"signature without image", "/api/checkout/signature", gin.H{"signature": gin.H{"method": "draw"}}},
		{"place before signing", "/api/checkout/place", nil},
		{"malformed preview body", "/api/checkout/preview", `{"locale":`},
		{"malformed place body", "/api/checkout/place", `{"locale": 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, "POST", tt.path, tt.body, cookie)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCheckoutHandlerCreateAddress(t *testing.T) {
	router := newCheckoutRouter(&stubCart{fail: map[string]error{}})
	cookie := sessionCookie(t, testAuthConfig(), "renter@example.com")

	w := doRequest(t, router, "POST", "/api/checkout/addresses/new", gin.H{
		"address":          gin.H{"street": []string{"Kungsgatan 2"}, "city": "Malmö", "country_code": "SE"},
		"use_for_billing":  true,
		"use_for_shipping": true,
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	view := body["checkout"].(map[string]any)
	if view["billing_address_id"] != float64(8) || view["shipping_address_id"] != float64(8) {
		t.Errorf("Expected new address to be selected, got %v", view)
	}
}
