package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"canary/internal/domain"
	"canary/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expose      bool
		wantStatus  int
		wantMessage string
	}{
		{"invalid body", errors.Join(errInvalidBody, errors.New("EOF")), false, http.StatusBadRequest, msgMissingName},
		{"missing name", service.ErrMissingName, false, http.StatusBadRequest, msgMissingName},
		{"not found wrapped", fmt.Errorf("delete item 7: %w", domain.ErrItemNotFound), false, http.StatusNotFound, "Item with id 7 not found"},
		{"unauthorized", errUnauthorized, false, http.StatusUnauthorized, "Unauthorized - Missing or invalid token"},
		{"forbidden", errForbidden, false, http.StatusForbidden, "Forbidden - Invalid credentials"},
		{"rate limited", errRateLimited, false, http.StatusTooManyRequests, "rate limit exceeded"},
		{"internal hidden", errors.New("disk I/O error"), false, http.StatusInternalServerError, "internal server error"},
		{"internal exposed", errors.New("disk I/O error"), true, http.StatusInternalServerError, "disk I/O error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := classify(tt.err, 7, tt.expose)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}
