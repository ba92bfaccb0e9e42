// Package admin contains the endpoints of the admin panel
package admin

import (
	"bitwise74/dropgate/app/apierr"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin exchanges admin credentials for a short lived token.
func AdminLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Username field can't be empty",
			"requestID": requestID,
		})
		return
	}

	if data.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Password field can't be empty",
			"requestID": requestID,
		})
		return
	}

	principal, err := d.Admins.Authenticate(c.Request.Context(), data.Username, data.Password)
	if err != nil {
		apierr.Abort(c, err, "Failed to authenticate admin")
		return
	}

	if principal.Role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "Insufficient permissions",
			"requestID": requestID,
		})
		return
	}

	token, exp, err := d.Tokens.Issue(principal.ID, principal.Username, principal.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	zap.L().Info("Admin logged in", zap.String("username", principal.Username), zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": exp.UnixMilli(),
	})
}
