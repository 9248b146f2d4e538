package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/pkg/jwt"
	"github.com/insightboard/core/internal/pkg/response"
)

const ContextKeySubject = "subject"

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// Auth returns a middleware that requires a valid bearer token.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validate(parser, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

// OptionalAuth sets the subject if a valid token is present, but does not
// block the request.
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := validate(parser, extractToken(c)); err == nil && claims.Subject != "" {
			c.Set(ContextKeySubject, claims.Subject)
		}
		c.Next()
	}
}

func validate(parser TokenParser, token string) (*jwt.Claims, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}
	return parser.Parse(token)
}

// CurrentSubject extracts the authenticated subject from context.
func CurrentSubject(c *gin.Context) string {
	return c.GetString(ContextKeySubject)
}

// IsAuthenticated returns true if the request carried a valid token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentSubject(c) != ""
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
