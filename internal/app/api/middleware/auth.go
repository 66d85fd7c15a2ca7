package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	cfgpkg "github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// AuthMiddleware resolves the authenticated customer from a bearer token and
// places the identity on the request context. Handlers read it from there
// instead of any ambient session state.
func AuthMiddleware(cfg *cfgpkg.Config) gin.HandlerFunc {
	return authWith(cfg, false)
}

// AdminAuthMiddleware additionally requires the admin claim.
func AdminAuthMiddleware(cfg *cfgpkg.Config) gin.HandlerFunc {
	return authWith(cfg, true)
}

func authWith(cfg *cfgpkg.Config, requireAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c.GetHeader("Authorization"), cfg.Auth.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "token missing subject"))
			return
		}
		if requireAdmin {
			if isAdmin, _ := claims["admin"].(bool); !isAdmin {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "admin required"))
				return
			}
		}

		c.Set(logctx.KeyCustomerID, sub)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyCustomerID, sub)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseBearer(header, secret string) (jwt.MapClaims, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, fmt.Errorf("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
