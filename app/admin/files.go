package admin

import (
	"bitwise74/dropgate/app/apierr"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileList returns file metadata page by page.
// Query: ?page=0&limit=50&sort=newest
func FileList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid page",
			"requestID": requestID,
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultListLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid limit",
			"requestID": requestID,
		})
		return
	}

	entries, err := d.Registry.List(c.Request.Context(), service.ListOptions{
		Page:  page,
		Limit: limit,
		Sort:  c.DefaultQuery("sort", "newest"),
	})
	if err != nil {
		apierr.Abort(c, err, "Failed to list files")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":  page,
		"files": entries,
	})
}

// FileUpdate changes the privacy flag of a file.
func FileUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var patch service.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	rec, err := d.Registry.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		apierr.Abort(c, err, "Failed to update file")
		return
	}

	zap.L().Info("File updated",
		zap.String("id", rec.ID),
		zap.Bool("isPrivate", rec.IsPrivate),
		zap.String("admin", c.GetString("admin")),
		zap.String("requestID", requestID),
	)

	c.JSON(http.StatusOK, rec)
}

// FileDelete removes a file and its content.
func FileDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	id := c.Param("id")

	if err := d.Registry.Delete(c.Request.Context(), id); err != nil {
		apierr.Abort(c, err, "Failed to delete file")
		return
	}

	zap.L().Info("File deleted",
		zap.String("id", id),
		zap.String("admin", c.GetString("admin")),
		zap.String("requestID", requestID),
	)

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"deleted": true,
	})
}
