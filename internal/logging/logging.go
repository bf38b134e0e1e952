// Package logging builds the zap loggers used by all commands and the gin request logger.
package logging

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id that the client assigns to every request.
const RequestIDHeader = "X-Request-ID"

// New builds a production zap logger with the given level ("debug", "info", "warn", "error").
// The output paths default to stderr.
func New(level string, outputPaths ...string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config := zap.NewProductionConfig()
	config.Level = atomicLevel
	if len(outputPaths) > 0 {
		config.OutputPaths = outputPaths
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// GinLogger logs one line per HTTP request. Server errors are logged at error level, client
// errors at warn level.
func GinLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if id := c.GetHeader(RequestIDHeader); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
