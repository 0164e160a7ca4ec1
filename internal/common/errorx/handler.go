package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorHandler writes APIErrors to the client and logs their causes
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger.Named("errorx")}
}

// Respond converts err to an APIError, logs it and aborts the request
func (h *ErrorHandler) Respond(c *gin.Context, err error) {
	if err == nil {
		return
	}
	apiErr := ConvertToAPIError(err)
	traceID := ExtractTraceID(c)

	h.logError(c, apiErr, traceID)

	c.AbortWithStatusJSON(apiErr.HTTPStatus, gin.H{
		"error":   apiErr.Message,
		"code":    apiErr.Code,
		"traceId": traceID,
	})
}

// ConvertToAPIError maps any error to an APIError. Unknown errors are 500s.
func ConvertToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, cnst.ErrNotFound):
		return ErrResourceNotFound.Wrap(err)
	case errors.Is(err, cnst.ErrDuplicate):
		return ErrResourceExists.Wrap(err)
	case errors.Is(err, cnst.ErrAlreadyPending):
		return ErrRequestPending.Wrap(err)
	case errors.Is(err, cnst.ErrLastSuperAdmin):
		return ErrLastSuperAdmin.Wrap(err)
	}
	return ErrInternalServer.Wrap(err)
}

func (h *ErrorHandler) logError(c *gin.Context, apiErr *APIError, traceID string) {
	fields := []zap.Field{
		zap.String("trace_id", traceID),
		zap.String("error_code", apiErr.Code),
		zap.String("category", string(apiErr.Category)),
		zap.Int("http_status", apiErr.HTTPStatus),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("client_ip", c.ClientIP()),
	}
	if apiErr.cause != nil {
		fields = append(fields, zap.Error(apiErr.cause))
	}

	switch apiErr.Severity {
	case SeverityInfo:
		h.logger.Info(apiErr.Message, fields...)
	case SeverityWarning:
		h.logger.Warn(apiErr.Message, fields...)
	default:
		h.logger.Error(apiErr.Message, fields...)
	}
}

// RecoveryMiddleware turns panics into 500 responses of the usual shape
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		h.logger.Error("panic recovered",
			zap.Any("panic", rec),
			zap.String("path", c.Request.URL.Path),
			zap.String("stack_trace", string(buf[:n])),
		)
		h.Respond(c, ErrInternalServer.Wrap(fmt.Errorf("panic: %v", rec)))
	})
}

// NoRoute answers unknown paths with a JSON 404
func (h *ErrorHandler) NoRoute(c *gin.Context) {
	h.Respond(c, ErrResourceNotFound.WithMessage("Endpoint not found"))
}

// ExtractTraceID returns the trace id for the request, creating one if needed
func ExtractTraceID(c *gin.Context) string {
	if traceID := c.GetString(cnst.CtxKeyTraceID); traceID != "" {
		return traceID
	}
	traceID := c.GetHeader(cnst.HeaderTraceID)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	c.Set(cnst.CtxKeyTraceID, traceID)
	return traceID
}

// StatusOf returns the HTTP status err would be answered with
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return ConvertToAPIError(err).HTTPStatus
}
