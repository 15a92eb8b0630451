package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appintegration "github.com/conexapi/backend/internal/application/integration"
	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/domain/shared"
	"github.com/conexapi/backend/internal/domain/trade"
	"github.com/conexapi/backend/internal/interfaces/http/dto"
	"github.com/conexapi/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getUserID extracts the authenticated user's id from the JWT claims.
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := middleware.GetJWTUserID(c)
	if userIDStr == "" {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return uuid.Parse(userIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps application and domain errors to HTTP responses.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code, message := classifyError(err)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// classifyError picks the wire error code and message for an error.
func classifyError(err error) (string, string) {
	// Typed failures from the integration context
	var refreshErr *integration.RefreshError
	if errors.As(err, &refreshErr) {
		return dto.ErrCodeTokenRefreshFailed,
			"Platform token refresh failed: " + refreshErr.ReasonTag()
	}
	var apiErr *integration.ExternalAPIError
	if errors.As(err, &apiErr) {
		return dto.ErrCodePlatformError, apiErr.Error()
	}

	// Domain errors carry their own code and message
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return dto.NormalizeErrorCode(domainErr.Code), domainErr.Message
	}

	switch {
	case errors.Is(err, integration.ErrNoCredential):
		return dto.ErrCodeNoCredential, "No credential stored for this platform account"
	case errors.Is(err, integration.ErrCredentialExists):
		return dto.ErrCodeAlreadyExists, "A credential for this platform account already exists"
	case errors.Is(err, integration.ErrCredentialInactive):
		return dto.ErrCodeCredentialInactive, "The stored credential is disabled"
	case errors.Is(err, integration.ErrPlatformUnauthorized):
		return dto.ErrCodePlatformUnauthorized, "The platform rejected the stored token"
	case errors.Is(err, integration.ErrPlatformUnavailable):
		return dto.ErrCodePlatformUnavailable, "The platform could not be reached"
	case errors.Is(err, integration.ErrInvalidPlatform),
		errors.Is(err, integration.ErrInvalidAccountKey),
		errors.Is(err, integration.ErrInvalidRefreshMargin),
		errors.Is(err, integration.ErrMissingRefreshToken),
		errors.Is(err, integration.ErrMissingAccountIdentity),
		errors.Is(err, integration.ErrTokenWithoutExpiry),
		errors.Is(err, integration.ErrExpiryWithoutToken),
		errors.Is(err, integration.ErrPlatformInvalidBody):
		return dto.ErrCodeInvalidInput, err.Error()
	case errors.Is(err, trade.ErrInvalidTransition):
		return dto.ErrCodeInvalidState, "The order cannot transition to the requested status"
	case errors.Is(err, trade.ErrInvalidExternalID),
		errors.Is(err, trade.ErrInvalidQuantity),
		errors.Is(err, trade.ErrInvalidAmount):
		return dto.ErrCodeInvalidInput, err.Error()
	case errors.Is(err, appintegration.ErrNoRefresher):
		return dto.ErrCodeInternal, "Platform integration is not configured"
	case errors.Is(err, shared.ErrNotFound):
		return dto.ErrCodeNotFound, "Resource not found"
	case errors.Is(err, shared.ErrAlreadyExists):
		return dto.ErrCodeAlreadyExists, "Resource already exists"
	case errors.Is(err, shared.ErrForbidden):
		return dto.ErrCodeForbidden, "Access to this resource is forbidden"
	case errors.Is(err, shared.ErrUnauthorized):
		return dto.ErrCodeUnauthorized, "Authentication required"
	case errors.Is(err, shared.ErrInvalidInput):
		return dto.ErrCodeInvalidInput, err.Error()
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
}
