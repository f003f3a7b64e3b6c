package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func guardedRouter(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", guard, func(c *gin.Context) {
		id, _ := c.Get(UserIDKey)
		if id == nil {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, id.(primitive.ObjectID).Hex())
	})
	return r
}

func do(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	r := guardedRouter(AdminAuth(testSecret))
	userID := primitive.NewObjectID()
	exp := time.Now().Add(time.Hour).Unix()

	if w := do(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(r, "Token abc"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad scheme, got %d", w.Code)
	}
	if w := do(r, signed(t, jwt.MapClaims{"userId": userID.Hex(), "role": "user", "exp": exp})); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	w := do(r, signed(t, jwt.MapClaims{"userId": userID.Hex(), "role": "admin", "exp": exp}))
	if w.Code != http.StatusOK || w.Body.String() != userID.Hex() {
		t.Fatalf("expected admin through, got %d %s", w.Code, w.Body.String())
	}
}

func TestUserAuthRejectsExpiredToken(t *testing.T) {
	r := guardedRouter(UserAuth(testSecret))
	token := signed(t, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"exp":    time.Now().Add(-time.Minute).Unix(),
	})

	if w := do(r, token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	r := guardedRouter(OptionalAuth(testSecret))

	if w := do(r, ""); w.Code != http.StatusOK || w.Body.String() != "guest" {
		t.Fatalf("expected guest pass-through, got %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "Bearer not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", w.Code)
	}

	userID := primitive.NewObjectID()
	w := do(r, signed(t, jwt.MapClaims{"userId": userID.Hex()}))
	if w.Body.String() != userID.Hex() {
		t.Fatalf("expected user id, got %s", w.Body.String())
	}
}
