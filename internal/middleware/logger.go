package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDKey clave del request ID en el contexto gin
const RequestIDKey = "request_id"

// LoggerMiddleware línea de acceso coloreada en consola más un log estructurado
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		statusColor := getStatusColor(param.StatusCode)
		methodColor := getMethodColor(param.Method)

		requestID, _ := param.Keys[RequestIDKey].(string)

		logLine := fmt.Sprintf(
			"%s %s %s %s %s %dms %s %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			methodColor+param.Method+resetColor,
			param.Path,
			param.Request.Proto,
			statusColor+fmt.Sprintf("%d", param.StatusCode)+resetColor,
			param.Latency.Milliseconds(),
			param.ClientIP,
			requestID,
		)

		logger.Info("HTTP Request",
			zap.String("request_id", requestID),
			zap.String("method", param.Method),
			zap.String("path", param.Path),
			zap.String("client_ip", param.ClientIP),
			zap.String("user_agent", param.Request.UserAgent()),
			zap.Int("status_code", param.StatusCode),
			zap.Duration("latency", param.Latency),
			zap.String("error", param.ErrorMessage),
		)

		return logLine
	})
}

// RequestIDMiddleware reutiliza X-Request-ID o genera un UUID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}

func getStatusColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return greenColor
	case statusCode >= 300 && statusCode < 400:
		return cyanColor
	case statusCode >= 400 && statusCode < 500:
		return yellowColor
	case statusCode >= 500:
		return redColor
	default:
		return whiteColor
	}
}

func getMethodColor(method string) string {
	switch method {
	case "GET":
		return greenColor
	case "POST":
		return blueColor
	case "PUT":
		return yellowColor
	case "DELETE":
		return redColor
	case "PATCH":
		return magentaColor
	default:
		return whiteColor
	}
}
