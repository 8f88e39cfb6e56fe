package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huangsam/pmoinsight/schema"
)

// errorResponder renders the last error a handler attached with c.Error.
func errorResponder(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var ve *schema.ValidationError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field, "reason": ve.Reason})
		case errors.Is(err, schema.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, schema.ErrSnapshotUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	}
}
