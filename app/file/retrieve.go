package file

import (
	"bitwise74/dropgate/app/apierr"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/model"
	"bitwise74/dropgate/internal/service"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// FileRetrieve streams a file by its slug once the access gate allows it.
// Browsers asking for a passcode get an HTML form, everything else JSON.
func FileRetrieve(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	ctx := c.Request.Context()

	slug := c.Param("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No slug provided",
			"requestID": requestID,
		})
		return
	}

	rec, err := d.Registry.Lookup(ctx, slug)
	if err != nil {
		apierr.Abort(c, err, "Failed to look up file")
		return
	}

	var passcode *string
	if p, ok := c.GetQuery(service.PasscodeParam); ok {
		passcode = &p
	}

	decision := service.Evaluate(rec, d.Now(), passcode)
	service.RecordDecision(decision)

	switch decision {
	case service.Expired:
		apierr.Abort(c, service.ErrExpired, "")
		return
	case service.PasscodeRequired:
		denyPasscode(c, rec, http.StatusUnauthorized, "Passcode required")
		return
	case service.PasscodeInvalid:
		denyPasscode(c, rec, http.StatusForbidden, "Invalid passcode")
		return
	}

	rc, err := d.Registry.Open(ctx, rec)
	if err != nil {
		apierr.Abort(c, err, "Failed to open file")
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, rec.Size, rec.MimeType, rc, map[string]string{
		"Content-Disposition":    contentDisposition(rec.OriginalName),
		"Cache-Control":          "private, no-store",
		"X-Content-Type-Options": "nosniff",
	})
}

func denyPasscode(c *gin.Context, rec *model.FileRecord, code int, msg string) {
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.HTML(code, "passcode", gin.H{
			"Action":  "/d/" + rec.Slug,
			"AdParam": service.AdMarkerParam,
			"AdValue": service.AdMarkerValue,
			"Invalid": code == http.StatusForbidden,
		})
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(code, gin.H{
		"error":     msg,
		"requestID": c.GetString("requestID"),
	})
}

// contentDisposition builds an attachment header, falling back to a plain
// one when the name can't be encoded.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}

	return "attachment; filename=" + strconv.Quote("download")
}
