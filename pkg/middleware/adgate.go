package middleware

import (
	"bitwise74/dropgate/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewAdGateMiddleware sends requests that haven't been through the
// interstitial page there first, carrying the original URL along.
func NewAdGateMiddleware(g *service.AdGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Seen(c.Request.URL.Query()) {
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, g.RedirectURL(c.Request.URL.RequestURI()))
		c.Abort()
	}
}
