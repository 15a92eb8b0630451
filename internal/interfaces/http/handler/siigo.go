package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/conexapi/backend/internal/domain/integration"
)

// SiigoHandler proxies calls to the Siigo accounting API using stored
// credentials.
type SiigoHandler struct {
	BaseHandler
	erp integration.ErpClient
}

// NewSiigoHandler creates a new Siigo proxy handler
func NewSiigoHandler(erp integration.ErpClient) *SiigoHandler {
	return &SiigoHandler{erp: erp}
}

// UpdateInventoryRequest is the request body for inventory updates
type UpdateInventoryRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// Products handles GET /siigo/products
func (h *SiigoHandler) Products(c *gin.Context) {
	key, ok := accountKey(c)
	if !ok {
		h.BadRequest(c, "account_key query parameter is required")
		return
	}

	products, err := h.erp.ListProducts(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// UpdateInventory handles PUT /siigo/products/:code/inventory
func (h *SiigoHandler) UpdateInventory(c *gin.Context) {
	key, ok := accountKey(c)
	if !ok {
		h.BadRequest(c, "account_key query parameter is required")
		return
	}

	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid inventory payload: "+err.Error())
		return
	}

	code := c.Param("code")
	if err := h.erp.UpdateInventory(c.Request.Context(), key, code, req.Quantity); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"product_code": code, "quantity": req.Quantity})
}

// CreateInvoice handles POST /siigo/invoices
func (h *SiigoHandler) CreateInvoice(c *gin.Context) {
	key, ok := accountKey(c)
	if !ok {
		h.BadRequest(c, "account_key query parameter is required")
		return
	}

	var invoice map[string]any
	if err := c.ShouldBindJSON(&invoice); err != nil {
		h.BadRequest(c, "Invalid invoice payload: "+err.Error())
		return
	}
	if len(invoice) == 0 {
		h.BadRequest(c, "Invoice payload cannot be empty")
		return
	}

	created, err := h.erp.CreateInvoice(c.Request.Context(), key, invoice)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}
