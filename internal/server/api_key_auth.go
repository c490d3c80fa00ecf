package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	contextAPIKeyIDKey     = "api_key_id"
	contextAPIKeyScopesKey = "api_key_scopes"
)

// APIKeyRequired authenticates the request with a bearer API key and
// requires the given scope. A valid key without the scope is forbidden,
// not unauthorized.
func (s *Server) APIKeyRequired(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.apiKeySvc.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if !key.HasScope(scope) {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Set(contextAPIKeyIDKey, key.KeyID)
		c.Set(contextAPIKeyScopesKey, []string(key.Scopes))
		c.Next()
	}
}
