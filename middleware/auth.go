package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/logger"
	"social-content-platform/utils"
)

const (
	userIDKey = "user_id"
	claimsKey = "claims"

	// RevokedTokenPrefix keys the Redis denylist of revoked token ids.
	RevokedTokenPrefix = "revoked:"
)

type AuthMiddleware struct {
	jwtSecret string
	rdb       redis.Cmdable
}

// NewAuthMiddleware validates HS256 bearer tokens. A nil rdb disables the revocation check.
func NewAuthMiddleware(jwtSecret string, rdb redis.Cmdable) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret, rdb: rdb}
}

func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			return
		}

		claims, err := utils.ValidateJWT(tokenString, a.jwtSecret)
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", nil)
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_token", "Token does not identify a user", nil)
			return
		}

		if a.isRevoked(c.Request.Context(), claims.ID) {
			utils.RespondWithError(c, http.StatusUnauthorized, "token_revoked", "Token has been revoked", nil)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// isRevoked fails open when Redis is unavailable.
func (a *AuthMiddleware) isRevoked(ctx context.Context, jti string) bool {
	if a.rdb == nil || jti == "" {
		return false
	}
	n, err := a.rdb.Exists(ctx, RevokedTokenPrefix+jti).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("Token revocation check failed", "error", err)
		return false
	}
	return n > 0
}

// GetUserID returns the authenticated user set by RequireAuth.
func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// SetUserID is used by tests and internal callers to act as a user.
func SetUserID(c *gin.Context, userID primitive.ObjectID) {
	c.Set(userIDKey, userID)
}
