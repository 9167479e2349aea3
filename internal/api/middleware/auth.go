package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/config"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

var (
	errNoToken   = errors.New("authorization header required")
	errNotBearer = errors.New("bearer token required")
	errBadToken  = errors.New("invalid or expired token")
)

// AuthMiddleware rejects requests without a valid access token and exposes
// the caller as user_id / user_email on the context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, cfg.JWTSecret)
		if err != nil {
			utils.AbortUnauthorized(c, err.Error())
			return
		}
		setViewer(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the viewer when a valid token is sent and lets
// anonymous requests through. Listing uses it to compute liked_by_user.
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := bearerClaims(c, cfg.JWTSecret); err == nil {
			setViewer(c, claims)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, secret string) (*utils.Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errNoToken
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, errNotBearer
	}
	claims, err := utils.ValidateToken(token, secret)
	if err != nil {
		return nil, errBadToken
	}
	return claims, nil
}

func setViewer(c *gin.Context, claims *utils.Claims) {
	c.Set("user_id", claims.UserID)
	c.Set("user_email", claims.Email)
}
