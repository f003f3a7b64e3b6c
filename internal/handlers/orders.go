package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
	"coopstore/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

// flexibleInt accepts a JSON number or a numeric string.
type flexibleInt int

func (n *flexibleInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*n = flexibleInt(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt || f < math.MinInt {
		return fmt.Errorf("invalid integer %q", raw)
	}
	*n = flexibleInt(int(f))
	return nil
}

type orderItemRequest struct {
	Product string      `json:"product"`
	Qty     flexibleInt `json:"qty"`
	Size    string      `json:"size"`
	Type    string      `json:"type"`
	Name    string      `json:"name"`
	Price   float64     `json:"price"`
	Image   string      `json:"image"`
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TotalPrice      float64                `json:"totalPrice"`
	User            string                 `json:"user"`
}

type paymentRequest struct {
	ID           string `json:"id" binding:"required"`
	Status       string `json:"status" binding:"required"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type statusRequest struct {
	IsPaid      *bool           `json:"isPaid"`
	IsDelivered *bool           `json:"isDelivered"`
	UserInfo    json.RawMessage `json:"userInfo"`
}

type userInfoPayload struct {
	Data struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"data"`
}

func (req createOrderRequest) toInput(caller primitive.ObjectID) (orders.CreateOrderInput, error) {
	in := orders.CreateOrderInput{
		User:            caller,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalPrice:      req.TotalPrice,
		Items:           make([]models.OrderLine, 0, len(req.OrderItems)),
	}

	// the body may only name the customer when no one is signed in
	if raw := strings.TrimSpace(req.User); raw != "" && caller.IsZero() {
		userID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return in, fmt.Errorf("invalid user")
		}
		in.User = userID
	}

	for _, item := range req.OrderItems {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.Product))
		if err != nil {
			return in, fmt.Errorf("invalid product id %q", item.Product)
		}
		in.Items = append(in.Items, models.OrderLine{
			Product: productID,
			Qty:     int(item.Qty),
			Size:    strings.TrimSpace(item.Size),
			Type:    strings.TrimSpace(item.Type),
			Name:    strings.TrimSpace(item.Name),
			Price:   item.Price,
			Image:   item.Image,
		})
	}
	return in, nil
}

// parseUserInfo decodes the acting admin from userInfo, which clients send
// as a JSON-encoded string (an embedded object is accepted too). ok is false
// when no userInfo was sent.
func parseUserInfo(raw json.RawMessage) (actor models.Actor, ok bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.Actor{}, false, nil
	}

	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return models.Actor{}, false, err
		}
		if strings.TrimSpace(encoded) == "" {
			return models.Actor{}, false, nil
		}
		trimmed = []byte(encoded)
	}

	var payload userInfoPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return models.Actor{}, false, err
	}
	return models.Actor{
		ID:       payload.Data.ID,
		FullName: payload.Data.Name,
		Email:    payload.Data.Email,
	}, true, nil
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		userID, _ := callerID(c)
		input, err := req.toInput(userID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		order, err := svc.CreateOrder(c.Request.Context(), input)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		respondOK(c, http.StatusCreated, order)
	}
}

/* =========================
   READ ORDERS
========================= */

func GetMyOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/mine"
		defer handlePanic(c, route)

		userID, ok := callerID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		list, _, err := svc.ListOrders(c.Request.Context(), userID, 0, 0)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, list)
	}
}

func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		order, ok := loadOwnedOrder(c, svc, route)
		if !ok {
			return
		}
		respondOK(c, http.StatusOK, order)
	}
}

// loadOwnedOrder fetches the :id order and checks the caller may see it.
// Someone else's order is reported as missing.
func loadOwnedOrder(c *gin.Context, svc *orders.Service, route string) (*models.Order, bool) {
	id, ok := parseObjectID(c, route, "id")
	if !ok {
		return nil, false
	}

	order, err := svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, route, err)
		return nil, false
	}

	userID, _ := callerID(c)
	if order.User != userID && !callerIsAdmin(c) {
		respondWithError(c, http.StatusNotFound, route, "order not found")
		return nil, false
	}
	return order, true
}

func ListOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		var userID primitive.ObjectID
		if raw := strings.TrimSpace(c.Query("user")); raw != "" {
			if userID, err = primitive.ObjectIDFromHex(raw); err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid user")
				return
			}
		}

		list, total, err := svc.ListOrders(c.Request.Context(), userID, page, limit)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondPage(c, list, page, limit, total)
	}
}

/* =========================
   PAYMENT & STATUS
========================= */

func ConfirmPayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/payment"
		defer handlePanic(c, route)

		var req paymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		order, ok := loadOwnedOrder(c, svc, route)
		if !ok {
			return
		}

		updated, err := svc.ConfirmPayment(c.Request.Context(), order.ID, models.PaymentResult{
			ID:           req.ID,
			Status:       req.Status,
			UpdateTime:   req.UpdateTime,
			EmailAddress: req.EmailAddress,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, updated)
	}
}

func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/status"
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		actor, sent, err := parseUserInfo(req.UserInfo)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid userInfo: "+err.Error())
			return
		}
		if !sent {
			actor = callerActor(c)
		}

		order, err := svc.UpdateStatus(c.Request.Context(), id, orders.StatusUpdate{
			IsPaid:      req.IsPaid,
			IsDelivered: req.IsDelivered,
			Actor:       actor,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, order)
	}
}

func DeleteOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		if err := svc.DeleteOrder(c.Request.Context(), id, callerActor(c)); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "order deleted"})
	}
}
