package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conexapi/backend/internal/domain/integration"
)

// MercadoLibreHandler proxies calls to the MercadoLibre API using stored
// credentials. Every call mints or reuses a token through the token
// service before reaching the platform.
type MercadoLibreHandler struct {
	BaseHandler
	marketplace integration.MarketplaceClient
}

// NewMercadoLibreHandler creates a new MercadoLibre proxy handler
func NewMercadoLibreHandler(marketplace integration.MarketplaceClient) *MercadoLibreHandler {
	return &MercadoLibreHandler{marketplace: marketplace}
}

// SearchOrdersRequest is the query for proxied order searches
type SearchOrdersRequest struct {
	AccountKey string     `form:"account_key" binding:"required"`
	SellerID   string     `form:"seller_id" binding:"required"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// UpdateItemRequest is the request body for proxied item updates
type UpdateItemRequest struct {
	Patch map[string]any `json:"patch" binding:"required"`
}

// accountKey extracts the required account_key query parameter.
func accountKey(c *gin.Context) (string, bool) {
	key := c.Query("account_key")
	return key, key != ""
}

// Profile handles GET /mercadolibre/profile
func (h *MercadoLibreHandler) Profile(c *gin.Context) {
	key, ok := accountKey(c)
	if !ok {
		h.BadRequest(c, "account_key query parameter is required")
		return
	}

	profile, err := h.marketplace.GetProfile(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// Orders handles GET /mercadolibre/orders
func (h *MercadoLibreHandler) Orders(c *gin.Context) {
	var req SearchOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid order search parameters: "+err.Error())
		return
	}

	orders, err := h.marketplace.SearchOrders(c.Request.Context(), req.AccountKey, req.SellerID, req.From, req.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// UpdateItem handles PATCH /mercadolibre/items/:id
func (h *MercadoLibreHandler) UpdateItem(c *gin.Context) {
	key, ok := accountKey(c)
	if !ok {
		h.BadRequest(c, "account_key query parameter is required")
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid item patch payload: "+err.Error())
		return
	}

	if err := h.marketplace.UpdateItem(c.Request.Context(), key, c.Param("id"), req.Patch); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"item_id": c.Param("id"), "updated": true})
}
