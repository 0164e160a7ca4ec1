package middleware

import (
	"crypto/subtle"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

// TraceID assigns every request a trace id and echoes it in the response
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := errorx.ExtractTraceID(c)
		c.Header(cnst.HeaderTraceID, id)
		c.Next()
	}
}

// BridgeKey admits the sensor bridge by shared secret. An empty key rejects everything.
func BridgeKey(key string, errs *errorx.ErrorHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(cnst.HeaderBridgeKey)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			errs.Respond(c, errorx.ErrUnauthorized.WithMessage("Invalid bridge key"))
			return
		}
		c.Next()
	}
}
