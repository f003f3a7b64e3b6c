package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"coopstore/internal/models"
	"coopstore/internal/store"
)

const (
	roleAdmin = "admin"
	roleUser  = "user"
)

type UserStore interface {
	InsertUser(ctx context.Context, u *models.User) error
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Register(users UserStore, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/register"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "name is required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] register password hash failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "password hash failed")
			return
		}

		user := &models.User{
			Name:         name,
			Email:        req.Email,
			PasswordHash: string(hash),
		}
		if err := users.InsertUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, "email already registered")
				return
			}
			respondServiceError(c, route, err)
			return
		}

		token, err := issueToken(user, jwtSecret, accessTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] register token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		respondOK(c, http.StatusCreated, gin.H{"accessToken": token, "user": user})
	}
}

func Login(users UserStore, jwtSecret string, accessTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		user, err := users.FindUserByEmail(c.Request.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			log.Println("[AUTH] [ERROR] login unknown email")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials for user")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		token, err := issueToken(user, jwtSecret, accessTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		log.Println("[AUTH] [INFO] user login succeeded:", user.Email)
		respondOK(c, http.StatusOK, gin.H{"accessToken": token, "user": user})
	}
}

func GetMe(users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /auth/me"
		defer handlePanic(c, route)

		id, ok := callerID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		user, err := users.FindUser(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, user)
	}
}

// issueToken signs an HS256 access token. The name and email claims feed the
// audit trail when an admin acts on a product or order.
func issueToken(user *models.User, secret string, accessTTL time.Duration) (string, error) {
	role := roleUser
	if user.IsAdmin {
		role = roleAdmin
	}
	claims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"role":   role,
		"email":  user.Email,
		"name":   user.Name,
		"exp":    time.Now().Add(accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		log.Printf("[%s] returning error %d: validation failed %v", route, http.StatusBadRequest, details)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"details": details,
		})
		return
	}
	respondWithError(c, http.StatusBadRequest, route, "invalid body: "+err.Error())
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
