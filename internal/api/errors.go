package api

import (
	"errors"
	"fmt"
	"net/http"

	"canary/internal/domain"
	"canary/internal/service"

	"github.com/rs/zerolog"
)

var (
	errInvalidBody  = errors.New("invalid request body")
	errUnauthorized = errors.New("missing or malformed bearer token")
	errForbidden    = errors.New("invalid bearer token")
	errRateLimited  = errors.New("rate limit exceeded")
)

const msgMissingName = "Missing 'name' in request body"

// classify maps an error to its HTTP status and client-facing message.
// itemID is only used for not-found messages.
func classify(err error, itemID int64, exposeErrors bool) (int, string) {
	switch {
	case errors.Is(err, errInvalidBody), errors.Is(err, service.ErrMissingName):
		return http.StatusBadRequest, msgMissingName
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, fmt.Sprintf("Item with id %d not found", itemID)
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "Unauthorized - Missing or invalid token"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "Forbidden - Invalid credentials"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, err.Error()
	default:
		if exposeErrors {
			return http.StatusInternalServerError, err.Error()
		}
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *HTTPServer) writeFailure(w http.ResponseWriter, r *http.Request, err error, itemID int64) {
	status, message := classify(err, itemID, s.cfg.HTTP.ExposeErrors)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, message)
}
