package file

import (
	"bitwise74/dropgate/app/apierr"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/service"
	"bitwise74/dropgate/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileUpload stores a multipart file and returns the slug it can be fetched
// with.
func FileUpload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body size exceeds limit",
				"requestID": requestID,
			})
			return
		}

		if errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "No file provided",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid multipart form",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to read multipart file", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	isPrivate, err := validators.ParsePrivate(c.PostForm("isPrivate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	expiryDays, err := validators.ParseExpiryDays(c.PostForm("expiryDays"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	// A passcode only means something on a private file
	var passcode string
	if isPrivate {
		passcode = c.PostForm("passcode")
		if err := validators.PasscodeValidator(passcode); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}
	}

	code, f, mimeType, err := validators.FileValidator(fh, d.MaxUploadSize)
	if err != nil {
		if code >= http.StatusInternalServerError {
			zap.L().Error("Failed to open uploaded file", zap.String("requestID", requestID), zap.Error(err))
			err = errors.New("Internal server error")
		}

		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	rec, err := d.Registry.Create(c.Request.Context(), service.NewFile{
		Name:       fh.Filename,
		MimeType:   mimeType,
		Size:       fh.Size,
		Body:       f,
		IsPrivate:  isPrivate,
		Passcode:   passcode,
		ExpiryDays: expiryDays,
	})
	if err != nil {
		apierr.Abort(c, err, "Failed to store file")
		return
	}

	zap.L().Debug("File uploaded",
		zap.String("requestID", requestID),
		zap.String("id", rec.ID),
		zap.String("slug", rec.Slug),
		zap.Int64("size", rec.Size),
	)

	c.JSON(http.StatusOK, gin.H{
		"slug":      rec.Slug,
		"url":       "/d/" + rec.Slug,
		"filename":  rec.OriginalName,
		"isPrivate": rec.IsPrivate,
		"expiresAt": rec.ExpiresAt,
	})
}
