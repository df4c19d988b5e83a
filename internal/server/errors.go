// Package server provides the HTTP REST API for the task marketplace.
package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mykola/agora/internal/db"
	"github.com/mykola/agora/internal/gateway"
	"github.com/mykola/agora/internal/relay"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var closed *relay.ContractClosedError
	var malformed *gateway.MalformedOutputError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &closed):
		return http.StatusForbidden
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.As(err, &malformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
