package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apptrade "github.com/conexapi/backend/internal/application/trade"
	"github.com/conexapi/backend/internal/interfaces/http/dto"
)

// OrderHandler exposes order CRUD and marketplace import endpoints
type OrderHandler struct {
	BaseHandler
	orderService *apptrade.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *apptrade.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderRequest is the request body for creating an order
type CreateOrderRequest struct {
	ExternalID    string          `json:"external_id" binding:"required"`
	Platform      string          `json:"platform" binding:"required,platform"`
	TotalQuantity int             `json:"total_quantity" binding:"min=0"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// UpdateOrderRequest is the request body for updating an order
type UpdateOrderRequest struct {
	Status        string           `json:"status" binding:"omitempty,oneof=PENDING PROCESSING COMPLETED CANCELLED"`
	TotalQuantity *int             `json:"total_quantity"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
}

// ImportOrdersRequest is the request body for a marketplace order import
type ImportOrdersRequest struct {
	AccountKey string     `json:"account_key" binding:"required"`
	SellerID   string     `json:"seller_id" binding:"required"`
	From       *time.Time `json:"from"`
	To         *time.Time `json:"to"`
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	ownerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	offset, limit := req.Normalize()

	orders, total, err := h.orderService.List(c.Request.Context(), ownerID, offset, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, req.Page, req.PageSize)
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	ownerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid order payload: "+err.Error())
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), ownerID, apptrade.CreateOrderInput{
		ExternalID:    req.ExternalID,
		Platform:      req.Platform,
		TotalQuantity: req.TotalQuantity,
		TotalAmount:   req.TotalAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	ownerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), ownerID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Update handles PUT /orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	ownerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid order payload: "+err.Error())
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), ownerID, orderID, apptrade.UpdateOrderInput{
		Status:        req.Status,
		TotalQuantity: req.TotalQuantity,
		TotalAmount:   req.TotalAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete handles DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	ownerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), ownerID, orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ImportMercadoLibre handles POST /orders/import/mercadolibre
func (h *OrderHandler) ImportMercadoLibre(c *gin.Context) {
	ownerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ImportOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid import payload: "+err.Error())
		return
	}

	result, err := h.orderService.ImportFromMercadoLibre(c.Request.Context(), ownerID, apptrade.ImportInput{
		AccountKey: req.AccountKey,
		SellerID:   req.SellerID,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// orderScope extracts the owner and the order id from the request.
func (h *OrderHandler) orderScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	ownerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Order id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, orderID, true
}
