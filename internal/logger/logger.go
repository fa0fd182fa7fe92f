package logger

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CorrelationIDHeader carries the per-request identifier in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

const correlationIDKey = "bugtrackerCorrelationID"

// Init builds the process logger from LOG_LEVEL and BUGTRACKER_ENV and installs it
// as the zap global.
func Init() (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(os.Getenv("BUGTRACKER_ENV"), "development") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logg)
	return logg, nil
}

// Middleware assigns a correlation id to every request and logs its outcome.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("correlation_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			zap.L().Error("request", fields...)
		case status >= 400:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	}
}

// CorrelationID returns the identifier assigned by Middleware, if any.
func CorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// FromContext returns the global logger annotated with the request correlation id.
func FromContext(c *gin.Context) *zap.Logger {
	if id := CorrelationID(c); id != "" {
		return zap.L().With(zap.String("correlation_id", id))
	}
	return zap.L()
}
