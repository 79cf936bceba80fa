package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/app"
	"tasktracker/internal/pkg/jwtutil"
	"tasktracker/internal/transport/http/response"
)

const (
	ContextClaimsKey = "auth_claims"
	ContextTokenKey  = "auth_token"
)

const (
	MessageInsertToken      = "Insert token!"
	MessageTokenUnmatched   = "Token unmatched!"
	MessageTokenExpired     = "Token expired!"
	MessageTokenUnavailable = "This token is no longer available!"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwtutil.Claims, error)
}

// AuthGate admits a request only with a bearer token that still matches the
// stored account. Routes registered before it on the engine stay public.
func AuthGate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeTokenMissing, MessageInsertToken)
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, jwtutil.ErrTokenExpired):
				response.Abort(c, http.StatusUnauthorized, response.CodeTokenExpired, MessageTokenExpired)
			case errors.Is(err, jwtutil.ErrTokenMalformed), errors.Is(err, jwtutil.ErrTokenInvalid):
				response.Abort(c, http.StatusUnauthorized, response.CodeTokenInvalid, MessageTokenUnmatched)
			case errors.Is(err, app.ErrTokenRevoked), errors.Is(err, app.ErrTokenStale):
				response.Abort(c, http.StatusUnauthorized, response.CodeTokenUnavailable, MessageTokenUnavailable)
			default:
				slog.Error("authenticate request failed", "path", c.FullPath(), "error", err)
				response.Abort(c, http.StatusInternalServerError, response.CodeInternalServer, "authentication failed")
			}
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// Claims returns the claims stored by AuthGate.
func Claims(c *gin.Context) (*jwtutil.Claims, bool) {
	v, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwtutil.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
