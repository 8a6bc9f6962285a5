package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/cache"
	"github.com/kyrhanu/ledger/config"
	"golang.org/x/crypto/blake2b"
)

const PlayerIDKey = "player_id"

// Auth validates the Bearer JWT and requires it to be the player's active
// session token in the cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil || claims.PlayerID <= 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		active, err := c.Get(cacheCtx, cache.SessionKey(claims.PlayerID))
		if err != nil || subtle.ConstantTimeCompare([]byte(active), []byte(tokenDigest(tokenStr))) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(PlayerIDKey, claims.PlayerID)
		ctx.Next()
	}
}

// tokenDigest is what the cache keeps instead of the bearer token itself.
func tokenDigest(tok string) string {
	sum := blake2b.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// IssueSession signs a token for the player and makes it the active session,
// replacing any earlier one.
func IssueSession(ctx context.Context, c cache.Cache, sec config.SecurityConfig, playerID int64) (string, error) {
	tok, err := GenerateToken(playerID, sec.JWTSecret, sec.SessionTTL)
	if err != nil {
		return "", err
	}
	if err := c.Set(ctx, cache.SessionKey(playerID), tokenDigest(tok), sec.SessionTTL); err != nil {
		return "", err
	}
	return tok, nil
}

// GetPlayerID retrieves the authenticated player ID from the Gin context.
func GetPlayerID(c *gin.Context) int64 {
	if v, exists := c.Get(PlayerIDKey); exists {
		return v.(int64)
	}
	return 0
}
