package webapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"estateflow/agreement"
	"estateflow/asset"
	"estateflow/auth"
	"estateflow/document"
	"estateflow/family"
)

// errorBody is the JSON shape every failed request returns.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps domain failures onto HTTP status codes. Workflow errors
// carry a taxonomy kind; everything else is a 500 with a generic message so
// internals never leak to callers.
func respondError(c echo.Context, err error) error {
	if kind := agreement.KindOf(err); kind != 0 {
		return c.JSON(statusForKind(kind), errorBody{Error: err.Error(), Code: kind.String()})
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactiveUser):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, agreement.ErrNotFound),
		errors.Is(err, agreement.ErrBeneficiaryNotFound),
		errors.Is(err, family.ErrNotFound),
		errors.Is(err, asset.ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	}

	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func statusForKind(kind agreement.ErrorKind) int {
	switch kind {
	case agreement.KindUnauthorized:
		return http.StatusUnauthorized
	case agreement.KindValidationFailed,
		agreement.KindInvalidState,
		agreement.KindAlreadySigned:
		return http.StatusBadRequest
	case agreement.KindNotFound:
		return http.StatusNotFound
	case agreement.KindNotConfigured:
		return http.StatusServiceUnavailable
	case agreement.KindOnChainFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
