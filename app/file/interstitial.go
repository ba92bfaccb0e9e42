package file

import (
	"bitwise74/dropgate/app/apierr"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Interstitial renders the ad page that counts down and then sends the
// browser back to ?next= with the ad marker set.
func Interstitial(c *gin.Context, d *internal.Deps) {
	next, err := d.AdGate.Arm(c.Query(service.AdNextParam))
	if err != nil {
		apierr.Abort(c, err, "")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "interstitial", gin.H{
		"Next":    next,
		"Seconds": d.AdGate.Seconds,
	})
}
