package apperr

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// Abort renders err as {"error": code, "message": msg} and stops the chain.
// Internal failures and timeouts are logged with the route; their cause never
// reaches the client.
func Abort(c *gin.Context, log *slog.Logger, err error) {
	ae := From(err)
	if ae.Kind == KindInternal || ae.Kind == KindTimeout {
		log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"code", ae.Code,
			"error", ae.Err,
		)
	}
	c.AbortWithStatusJSON(ae.Status(), gin.H{"error": ae.Code, "message": ae.Message})
}
