package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const CtxRequestIDKey = "request_id"

// リクエストごとにIDを振ってアクセスログを1行出す。
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := uuid.NewString()
			c.Set(CtxRequestIDKey, reqID)
			c.Response().Header().Set("X-Request-ID", reqID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Info("request",
				zap.String("request_id", reqID),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}
