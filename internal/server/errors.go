package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/auth"
	"github.com/railzwaylabs/modelrail/internal/authorization"
	billingdomain "github.com/railzwaylabs/modelrail/internal/billing/domain"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrNotReady       = errors.New("system_not_ready")

	ErrPayloadTooLarge = errors.New("payload_too_large")
)

const internalErrorType = "internal_error"

// ValidationError reports a malformed field in the request.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Code
}

func newValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{ErrInvalidRequest, http.StatusBadRequest},
	{aiaccountdomain.ErrEmptyAccountIDs, http.StatusBadRequest},
	{aiaccountdomain.ErrInvalidProvider, http.StatusBadRequest},
	{aiaccountdomain.ErrInvalidName, http.StatusBadRequest},
	{aiaccountdomain.ErrMissingCredential, http.StatusBadRequest},
	{subscriptiondomain.ErrInvalidPlanName, http.StatusBadRequest},
	{subscriptiondomain.ErrInvalidPlanPrice, http.StatusBadRequest},
	{subscriptiondomain.ErrInvalidPlanCurrency, http.StatusBadRequest},
	{subscriptiondomain.ErrInvalidPlanDuration, http.StatusBadRequest},
	{accountdomain.ErrInvalidEmail, http.StatusBadRequest},
	{accountdomain.ErrWeakPassword, http.StatusBadRequest},
	{billingdomain.ErrMissingSignature, http.StatusBadRequest},
	{billingdomain.ErrInvalidAmount, http.StatusBadRequest},
	{billingdomain.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{billingdomain.ErrInvalidSettings, http.StatusBadRequest},
	{billingdomain.ErrInvalidEvent, http.StatusBadRequest},

	{ErrUnauthorized, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{accountdomain.ErrInvalidCredentials, http.StatusUnauthorized},
	{billingdomain.ErrInvalidSignature, http.StatusUnauthorized},

	{authorization.ErrForbidden, http.StatusForbidden},

	{ErrNotFound, http.StatusNotFound},
	{aiaccountdomain.ErrAccountNotFound, http.StatusNotFound},
	{subscriptiondomain.ErrPlanNotFound, http.StatusNotFound},
	{accountdomain.ErrUserNotFound, http.StatusNotFound},
	{billingdomain.ErrRecordNotFound, http.StatusNotFound},

	{subscriptiondomain.ErrPlanAlreadyExists, http.StatusConflict},
	{billingdomain.ErrEventInProgress, http.StatusConflict},
	{billingdomain.ErrReceiptUnavailable, http.StatusConflict},

	{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},

	{billingdomain.ErrGatewayNotConfigured, http.StatusServiceUnavailable},
	{ErrNotReady, http.StatusServiceUnavailable},
}

// AbortWithError writes the error response for err and stops the handler
// chain. Unmapped errors become 500 and are kept on the context for the
// access log.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Type:    verr.Code,
			Message: verr.Message,
			Field:   verr.Field,
		}})
		return
	}

	status, errType := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Type: errType, Message: message}})
}

func classify(err error) (int, string) {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			return entry.status, entry.err.Error()
		}
	}
	return http.StatusInternalServerError, internalErrorType
}
