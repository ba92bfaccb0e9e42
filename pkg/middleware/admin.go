package middleware

import (
	"bitwise74/dropgate/pkg/security"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimsKey is where the verified token claims are stored on the context
const ClaimsKey = "claims"

// bearerToken reads the token from "Authorization: Bearer <t>" and falls
// back to a plain "token" header.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}

		return ""
	}

	return c.GetHeader("token")
}

// NewAdminMiddleware only lets requests through that carry a valid token
// for the given role. Missing or invalid tokens get 401, a valid token
// with another role gets 403.
func NewAdminMiddleware(tokens *security.TokenIssuer, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "No authorization token provided",
				"requestID": requestID,
			})
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Rejected admin token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if err := security.RequireRole(claims, role); err != nil {
			if errors.Is(err, security.ErrForbidden) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":     "Insufficient permissions",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set("admin", claims.Username)
		c.Next()
	}
}
