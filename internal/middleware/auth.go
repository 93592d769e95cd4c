package middleware

import (
	"strings"

	"collaborative-document-service/internal/auth"
	"collaborative-document-service/internal/errors"

	"github.com/gin-gonic/gin"
)

const UserIDKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type Auth struct {
	Verifier TokenVerifier
}

// AuthMiddleWare accepts a bearer header, or a token query parameter for
// websocket upgrades where browsers cannot set headers.
func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthenticated("No token provided", nil))
			ctx.Abort()
			return
		}

		identity, err := m.Verifier.Verify(token)
		if err != nil {
			ctx.Error(errors.Unauthenticated("Invalid token", err))
			ctx.Abort()
			return
		}

		ctx.Set(UserIDKey, identity.UserID)
		ctx.Next()
	}
}

// UserID returns the verified caller set by AuthMiddleWare.
func UserID(ctx *gin.Context) string {
	return ctx.GetString(UserIDKey)
}
