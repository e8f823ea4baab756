package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
)

type CartService interface {
	GetCart(ctx context.Context, token string) (*model.Cart, error)
	AddItem(ctx context.Context, token, cartID, sku string, qty int, from, to time.Time) (*model.Cart, error)
	UpdateItem(ctx context.Context, token, cartID, uid string, qty int) (*model.Cart, error)
	RemoveItem(ctx context.Context, token, cartID, uid string) (*model.Cart, error)
}

type CartHandler struct {
	cart CartService
	auth *config.AuthConfig
}

func NewCartHandler(cart CartService, auth *config.AuthConfig) *CartHandler {
	return &CartHandler{cart: cart, auth: auth}
}

// cartResponse adds the rental length per line to the cart.
func cartResponse(cart *model.Cart) gin.H {
	days := make(map[string]int, len(cart.Items))
	for _, it := range cart.Items {
		days[it.UID] = it.TotalDays()
	}
	return gin.H{"cart": cart, "rental_days": days}
}

func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.cart.GetCart(c.Request.Context(), middleware.GetCommerceToken(c))
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(cart))
}

type addItemRequest struct {
	SKU        string `json:"sku" binding:"required"`
	Quantity   int    `json:"quantity"`
	RentalFrom string `json:"rental_from" binding:"required"`
	RentalTo   string `json:"rental_to" binding:"required"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "SKU and rental dates are required")
		return
	}
	from, errFrom := time.Parse(time.DateOnly, req.RentalFrom)
	to, errTo := time.Parse(time.DateOnly, req.RentalTo)
	if errFrom != nil || errTo != nil {
		badRequest(c, "Rental dates must be YYYY-MM-DD")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	h.mutate(c, func(ctx context.Context, token, cartID string) (*model.Cart, error) {
		return h.cart.AddItem(ctx, token, cartID, req.SKU, req.Quantity, from, to)
	})
}

type updateItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Quantity is required")
		return
	}

	h.mutate(c, func(ctx context.Context, token, cartID string) (*model.Cart, error) {
		return h.cart.UpdateItem(ctx, token, cartID, c.Param("uid"), req.Quantity)
	})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, token, cartID string) (*model.Cart, error) {
		return h.cart.RemoveItem(ctx, token, cartID, c.Param("uid"))
	})
}

// mutate resolves the customer's cart id and applies fn to it.
func (h *CartHandler) mutate(c *gin.Context, fn func(ctx context.Context, token, cartID string) (*model.Cart, error)) {
	ctx := c.Request.Context()
	token := middleware.GetCommerceToken(c)

	current, err := h.cart.GetCart(ctx, token)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	cart, err := fn(ctx, token, current.ID)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(cart))
}
