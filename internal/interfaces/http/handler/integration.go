package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appintegration "github.com/conexapi/backend/internal/application/integration"
)

// IntegrationHandler exposes platform credential management endpoints.
// Responses carry redacted secrets only.
type IntegrationHandler struct {
	BaseHandler
	credentialService *appintegration.CredentialService
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(credentialService *appintegration.CredentialService) *IntegrationHandler {
	return &IntegrationHandler{credentialService: credentialService}
}

// CreateCredentialRequest is the request body for connecting a platform account
type CreateCredentialRequest struct {
	Platform      string `json:"platform" binding:"required,platform"`
	AccountKey    string `json:"account_key" binding:"required,max=255"`
	RefreshToken  string `json:"refresh_token"`
	Username      string `json:"username"`
	AccessKey     string `json:"access_key"`
	RefreshMargin string `json:"refresh_margin" binding:"omitempty,duration"`
}

// UpdateCredentialRequest is the request body for updating a stored credential
type UpdateCredentialRequest struct {
	RefreshToken  string `json:"refresh_token"`
	Username      string `json:"username"`
	AccessKey     string `json:"access_key"`
	RefreshMargin string `json:"refresh_margin" binding:"omitempty,duration"`
	IsActive      *bool  `json:"is_active"`
}

// List handles GET /integrations
func (h *IntegrationHandler) List(c *gin.Context) {
	credentials, err := h.credentialService.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, credentials)
}

// Create handles POST /integrations
func (h *IntegrationHandler) Create(c *gin.Context) {
	var req CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid credential payload: "+err.Error())
		return
	}

	input := appintegration.CreateCredentialInput{
		Platform:     req.Platform,
		AccountKey:   req.AccountKey,
		RefreshToken: req.RefreshToken,
		Username:     req.Username,
		AccessKey:    req.AccessKey,
	}
	if req.RefreshMargin != "" {
		margin, err := time.ParseDuration(req.RefreshMargin)
		if err != nil {
			h.BadRequest(c, "Invalid refresh margin")
			return
		}
		input.RefreshMargin = margin
	}

	credential, err := h.credentialService.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, credential)
}

// Get handles GET /integrations/:id
func (h *IntegrationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credential ID")
		return
	}

	credential, err := h.credentialService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, credential)
}

// Update handles PUT /integrations/:id
func (h *IntegrationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credential ID")
		return
	}

	var req UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid credential payload: "+err.Error())
		return
	}

	input := appintegration.UpdateCredentialInput{
		RefreshToken: req.RefreshToken,
		Username:     req.Username,
		AccessKey:    req.AccessKey,
		IsActive:     req.IsActive,
	}
	if req.RefreshMargin != "" {
		margin, err := time.ParseDuration(req.RefreshMargin)
		if err != nil {
			h.BadRequest(c, "Invalid refresh margin")
			return
		}
		input.RefreshMargin = &margin
	}

	credential, err := h.credentialService.Update(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, credential)
}

// Delete handles DELETE /integrations/:id
func (h *IntegrationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credential ID")
		return
	}

	if err := h.credentialService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
