package server

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"sync"

	internalauth "scenekit/internal/auth"
)

const (
	adminTokenHeader = "X-Admin-Token"
	confirmHeader    = "X-Confirm"
)

// tokenCheck verifies bearer tokens against one bcrypt hash. Accepted
// tokens are remembered by digest so bcrypt runs once per token.
type tokenCheck struct {
	hash     string
	accepted *sync.Map
}

func newTokenCheck(hash string) tokenCheck {
	return tokenCheck{hash: strings.TrimSpace(hash), accepted: &sync.Map{}}
}

func (c tokenCheck) configured() bool {
	return c.hash != ""
}

func (c tokenCheck) verify(candidate string) bool {
	if !c.configured() || candidate == "" {
		return false
	}
	digest := sha256.Sum256([]byte(candidate))
	if c.accepted != nil {
		if _, ok := c.accepted.Load(digest); ok {
			return true
		}
	}
	if !internalauth.VerifyToken(c.hash, candidate) {
		return false
	}
	if c.accepted != nil {
		c.accepted.Store(digest, struct{}{})
	}
	return true
}

// withAuth enforces the bearer token on API routes and the admin token on
// /v1/admin routes. Health and blob handles stay open; blob handles are
// scoped by session instead.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/v1/blobs/") {
			next.ServeHTTP(w, r)
			return
		}

		if s.apiToken.configured() && !s.apiToken.verify(bearerToken(r)) {
			s.writeErrorReq(w, r, http.StatusUnauthorized, apiError{
				status:  http.StatusUnauthorized,
				code:    "unauthorized",
				errCode: ErrCodeUnauthorized,
				err:     fmt.Errorf("missing or invalid bearer token"),
			})
			return
		}

		if strings.HasPrefix(path, "/v1/admin/") && s.adminToken.configured() &&
			!s.adminToken.verify(strings.TrimSpace(r.Header.Get(adminTokenHeader))) {
			s.writeErrorReq(w, r, http.StatusForbidden, apiError{
				status:  http.StatusForbidden,
				code:    "forbidden",
				errCode: ErrCodeForbidden,
				err:     fmt.Errorf("admin token required"),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
