package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerAuth accepts exactly one static token. It is a placeholder, not a
// credential system.
type BearerAuth struct {
	token []byte
}

func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{token: []byte(token)}
}

func (a *BearerAuth) check(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return errUnauthorized
	}

	token := strings.TrimPrefix(header, bearerPrefix)
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return errForbidden
	}
	return nil
}

func (s *HTTPServer) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.check(r); err != nil {
			s.writeFailure(w, r, err, 0)
			return
		}
		next(w, r)
	}
}
