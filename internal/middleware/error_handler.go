package middleware

import (
	apiError "collaborative-document-service/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}

		apiErr := apiError.FromDomain(c.Errors.Last().Err)

		if apiErr.Status >= 500 {
			logger.Error("request failed",
				zap.String("path", c.FullPath()),
				zap.Error(apiErr.Internal),
			)
		} else {
			logger.Info("request rejected",
				zap.String("path", c.FullPath()),
				zap.String("code", apiErr.Code),
				zap.NamedError("reason", apiErr.Internal),
			)
		}

		body := gin.H{
			"status":  "error",
			"code":    apiErr.Code,
			"message": apiErr.Message,
		}
		if len(apiErr.Fields) > 0 {
			body["fields"] = apiErr.Fields
		}
		c.AbortWithStatusJSON(apiErr.Status, body)
	}
}
