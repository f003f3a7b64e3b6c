package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ClaimsKey = "claims"
	UserIDKey = "userId"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// ParseBearer validates an "Authorization: Bearer <jwt>" header and returns
// its claims. An empty header yields errMissingToken.
func ParseBearer(header, secret string) (jwt.MapClaims, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return nil, errMissingToken
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errInvalidToken
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	return claims, nil
}

// UserIDFromClaims extracts the userId claim.
func UserIDFromClaims(claims jwt.MapClaims) (primitive.ObjectID, error) {
	value, ok := claims["userId"].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return primitive.NilObjectID, errors.New("userId claim missing")
	}
	return primitive.ObjectIDFromHex(value)
}

func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		userID, err := UserIDFromClaims(claims)
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid userId claim:", err)
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		role, _ := claims["role"].(string)
		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if role == r {
					match = true
					break
				}
			}
			if !match {
				abort(c, http.StatusForbidden, "forbidden")
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserAuth admits any signed-in user.
func UserAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret)
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, "admin")
}

// OptionalAuth sets the user when a valid token is present and lets the
// request through otherwise. A malformed token is still rejected.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseBearer(c.GetHeader("Authorization"), secret)
		if errors.Is(err, errMissingToken) {
			c.Next()
			return
		}
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if userID, err := UserIDFromClaims(claims); err == nil {
			c.Set(ClaimsKey, claims)
			c.Set(UserIDKey, userID)
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
