package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
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
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooMany      = errors.New("too_many_requests")
	ErrInternal     = errors.New("internal_error")
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
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrTooMany):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, billingdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "webhook signature verification failed",
		}
	case errors.Is(err, billingdomain.ErrInvalidPayload),
		errors.Is(err, billingdomain.ErrInvalidPlanKey),
		errors.Is(err, billingdomain.ErrInvalidMethod),
		errors.Is(err, billingdomain.ErrMissingChargeID):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, billingdomain.ErrChargeNotEligible):
		return http.StatusBadRequest, errorPayload{
			Type:    "charge_not_eligible",
			Message: "charge is not confirmed in the expected currency",
		}
	case errors.Is(err, teamdomain.ErrTeamNotFound):
		return http.StatusBadRequest, errorPayload{
			Type:    "team_not_found",
			Message: "team not found",
		}
	case errors.Is(err, teamdomain.ErrInvalidTeam):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_team",
			Message: "team name and owner email are required",
		}
	case errors.Is(err, teamdomain.ErrTeamExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "team already exists",
		}
	case errors.Is(err, billingdomain.ErrUpstreamUnavailable),
		errors.Is(err, billingdomain.ErrPaymentRejected):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: err.Error(),
		}
	case errors.Is(err, billingdomain.ErrPaymentUnresolved):
		// The transaction may still confirm; the client should poll the
		// subscription state instead of treating this as a failure.
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "payment_unresolved",
			Message: "payment not yet confirmed, retry a status check",
		}
	case errors.Is(err, billingdomain.ErrSecretNotConfigured),
		errors.Is(err, billingdomain.ErrSignerNotConfigured):
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: "service misconfigured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
