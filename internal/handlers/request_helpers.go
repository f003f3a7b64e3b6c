package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/inventory"
	"coopstore/internal/middleware"
	"coopstore/internal/models"
	"coopstore/internal/orders"
	"coopstore/internal/store"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondPage(c *gin.Context, data interface{}, page, limit, total int64) {
	totalPages := int64(0)
	if total > 0 && limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// respondServiceError maps domain errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a generic 500.
func respondServiceError(c *gin.Context, route string, err error) {
	var validationErr *orders.ValidationError
	var stockErr *inventory.InsufficientStockError

	switch {
	case errors.As(err, &validationErr):
		respondWithError(c, http.StatusBadRequest, route, validationErr.Message)
	case errors.As(err, &stockErr):
		log.Printf("[%s] returning error %d: %v", route, http.StatusConflict, stockErr)
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"success":   false,
			"message":   "insufficient stock",
			"productId": stockErr.ProductID.Hex(),
			"size":      stockErr.Size,
			"type":      stockErr.Type,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, orders.ErrOrderNotFound):
		respondWithError(c, http.StatusNotFound, route, "order not found")
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "not found")
	case errors.Is(err, store.ErrVersionConflict):
		respondWithError(c, http.StatusConflict, route, "stock changed while processing, please retry")
	case errors.Is(err, store.ErrDuplicate):
		respondWithError(c, http.StatusConflict, route, "already exists")
	default:
		log.Printf("[%s] unexpected error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func parseObjectID(c *gin.Context, route, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+param)
		return primitive.NilObjectID, false
	}
	return id, true
}

func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

func callerClaims(c *gin.Context) jwt.MapClaims {
	value, ok := c.Get(middleware.ClaimsKey)
	if !ok {
		return jwt.MapClaims{}
	}
	claims, _ := value.(jwt.MapClaims)
	return claims
}

func callerIsAdmin(c *gin.Context) bool {
	role, _ := callerClaims(c)["role"].(string)
	return role == roleAdmin
}

// callerActor builds the audit identity from the token claims.
func callerActor(c *gin.Context) models.Actor {
	claims := callerClaims(c)
	actor := models.Actor{}
	actor.ID, _ = claims["userId"].(string)
	actor.FullName, _ = claims["name"].(string)
	actor.Email, _ = claims["email"].(string)
	return actor
}
