package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/signing"
)

// ContractSigner is the signing workflow behind the contract routes.
type ContractSigner interface {
	DocumentForParty(ctx context.Context, orderID, email string) (*model.Document, model.Party, error)
	GetContractPDFURL(ctx context.Context, orderID string) (string, model.DocumentStatus, error)
	SignContract(ctx context.Context, in signing.SignInput) (*signing.SignResult, error)
	FinalizeContract(ctx context.Context, orderID string, data *model.RentalContractData, locale string) (string, error)
}

type ContractHandler struct {
	signer ContractSigner
	auth   *config.AuthConfig
}

func NewContractHandler(signer ContractSigner, auth *config.AuthConfig) *ContractHandler {
	return &ContractHandler{signer: signer, auth: auth}
}

// Get returns a link to the order's most complete contract artifact.
func (h *ContractHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("number")

	doc, party, err := h.signer.DocumentForParty(ctx, orderID, middleware.GetCustomer(c))
	if err != nil {
		respondError(c, h.auth, err)
		return
	}

	url, status, err := h.signer.GetContractPDFURL(ctx, orderID)
	if err != nil {
		respondError(c, h.auth, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id":   doc.ID,
		"order_id":      orderID,
		"party":         party,
		"status":        status,
		"url":           url,
		"owner_signed":  doc.OwnerSignature != nil,
		"renter_signed": doc.RenterSignature != nil,
	})
}

type signRequest struct {
	Signature model.Signature `json:"signature"`
	Locale    string          `json:"locale"`
}

// Sign attaches the caller's signature to the order's contract.
func (h *ContractHandler) Sign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid signature")
		return
	}
	if req.Signature.ImageData() == "" || !req.Signature.Method.Valid() {
		badRequest(c, "Signature image and method are required")
		return
	}

	res, err := h.signer.SignContract(c.Request.Context(), signing.SignInput{
		OrderID:     c.Param("number"),
		SignerEmail: middleware.GetCustomer(c),
		Signature:   req.Signature,
		Locale:      requestLocale(c, req.Locale),
	})
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Finalize re-renders a fully signed contract and notifies both parties.
func (h *ContractHandler) Finalize(c *gin.Context) {
	var req localeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	ctx := c.Request.Context()
	orderID := c.Param("number")

	if _, _, err := h.signer.DocumentForParty(ctx, orderID, middleware.GetCustomer(c)); err != nil {
		respondError(c, h.auth, err)
		return
	}

	url, err := h.signer.FinalizeContract(ctx, orderID, nil, requestLocale(c, req.Locale))
	if err != nil {
		respondError(c, h.auth, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": model.StatusSigned, "url": url})
}
