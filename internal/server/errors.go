package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/leadwayhq/leadway/internal/audit/domain"
	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	"github.com/leadwayhq/leadway/internal/authorization"
	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
	campaigndomain "github.com/leadwayhq/leadway/internal/campaign/domain"
	customerdomain "github.com/leadwayhq/leadway/internal/customer/domain"
	leaddomain "github.com/leadwayhq/leadway/internal/lead/domain"
	"github.com/leadwayhq/leadway/internal/providers/checkout"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isRBACValidationError(err),
		isBillingValidationError(err),
		isCustomerValidationError(err),
		isLeadValidationError(err),
		isCampaignValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isRBACValidationError(err error) bool {
	switch {
	case errors.Is(err, rbacdomain.ErrInvalidRole),
		errors.Is(err, rbacdomain.ErrInvalidPermission),
		errors.Is(err, rbacdomain.ErrUnknownPermission),
		errors.Is(err, rbacdomain.ErrInvalidAccount):
		return true
	default:
		return false
	}
}

func isBillingValidationError(err error) bool {
	switch {
	case errors.Is(err, billingdomain.ErrInvalidAccount),
		errors.Is(err, billingdomain.ErrInvalidEvent),
		errors.Is(err, billingdomain.ErrInvalidSubscription),
		errors.Is(err, billingdomain.ErrNotCancelable),
		errors.Is(err, billingdomain.ErrNotResumable),
		errors.Is(err, checkout.ErrUnknownPlan):
		return true
	default:
		return false
	}
}

func isCustomerValidationError(err error) bool {
	switch {
	case errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isLeadValidationError(err error) bool {
	switch {
	case errors.Is(err, leaddomain.ErrInvalidName),
		errors.Is(err, leaddomain.ErrInvalidEmail),
		errors.Is(err, leaddomain.ErrInvalidID),
		errors.Is(err, leaddomain.ErrInvalidStatus),
		errors.Is(err, leaddomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}

func isCampaignValidationError(err error) bool {
	switch {
	case errors.Is(err, campaigndomain.ErrInvalidName),
		errors.Is(err, campaigndomain.ErrInvalidID),
		errors.Is(err, campaigndomain.ErrInvalidStatus),
		errors.Is(err, campaigndomain.ErrInvalidSchedule),
		errors.Is(err, campaigndomain.ErrCampaignArchived):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrAccountExists),
		errors.Is(err, rbacdomain.ErrDuplicateName),
		errors.Is(err, rbacdomain.ErrProtectedRole),
		errors.Is(err, rbacdomain.ErrRoleInUse),
		errors.Is(err, rbacdomain.ErrPermissionInUse),
		errors.Is(err, rbacdomain.ErrAlreadyAssigned),
		errors.Is(err, rbacdomain.ErrNotAssigned),
		errors.Is(err, rbacdomain.ErrLastAdmin),
		errors.Is(err, campaigndomain.ErrDuplicateName):
		return true
	default:
		return false
	}
}

// conflictMessage keeps invariant failures actionable for the caller
// instead of collapsing them into a generic conflict.
func conflictMessage(err error) string {
	switch {
	case errors.Is(err, rbacdomain.ErrProtectedRole):
		return "the admin role cannot be deleted"
	case errors.Is(err, rbacdomain.ErrLastAdmin):
		return "at least one account must keep the admin role"
	case errors.Is(err, rbacdomain.ErrRoleInUse):
		return "role is still assigned to accounts"
	case errors.Is(err, rbacdomain.ErrPermissionInUse):
		return "permission is still attached to roles"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrAccountNotFound),
		errors.Is(err, rbacdomain.ErrRoleNotFound),
		errors.Is(err, rbacdomain.ErrPermissionNotFound),
		errors.Is(err, billingdomain.ErrSubscriptionNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, leaddomain.ErrNotFound),
		errors.Is(err, campaigndomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog downgrades expected client errors so request logs
// stay readable.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}

	_, payload := mapError(err)
	switch {
	case asValidationErrors(err) != nil, isValidationError(err),
		isNotFoundError(err), isConflictError(err),
		errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return "client_error", payload.Type
	default:
		return "server_error", payload.Type
	}
}
