package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
)

var admin = models.Actor{ID: "665f00000000000000000001", FullName: "Store Admin", Email: "admin@campus.edu"}

func boolPtr(v bool) *bool { return &v }

func seedOrder(mem interface {
	PutOrder(*models.Order) *models.Order
}, user primitive.ObjectID, products ...primitive.ObjectID) *models.Order {
	items := make([]models.OrderLine, 0, len(products))
	for _, id := range products {
		items = append(items, models.OrderLine{Product: id, Qty: 1})
	}
	return mem.PutOrder(&models.Order{
		User:              user,
		OrderItems:        items,
		PaymentMethod:     models.PaymentPickup,
		InventoryDeducted: true,
	})
}

func TestUpdateStatusDelivered(t *testing.T) {
	svc, mem, notifier := newTestService(t)
	shirt := seedShirt(mem)
	user := seedUser(mem)
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
	order := seedOrder(mem, user.ID, p1, p2)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{
		IsDelivered: boolPtr(true),
		Actor:       admin,
	})
	require.NoError(t, err)

	assert.True(t, updated.IsDelivered)
	require.NotNil(t, updated.DeliveredAt)
	assert.Equal(t, fixedNow, *updated.DeliveredAt)
	assert.Equal(t, []primitive.ObjectID{order.ID}, notifier.calls)

	logs := mem.Logs()
	require.Len(t, logs, 2, "one entry per order line")
	assert.Equal(t, p1, logs[0].ProductID)
	assert.Equal(t, p2, logs[1].ProductID)
	assert.Equal(t, models.ActionUpdate, logs[0].Action)
	assert.Equal(t, admin.ID, logs[0].User)
	assert.Equal(t, "Store Admin", logs[0].UserDetails.FullName)
	assert.Contains(t, logs[0].Reason, "delivered")

	assert.Equal(t, []int{5, 3}, stockOf(mem.Product(shirt.ID)), "status update never touches stock")
}

func TestUpdateStatusNoopSubmit(t *testing.T) {
	svc, mem, notifier := newTestService(t)
	order := seedOrder(mem, seedUser(mem).ID, primitive.NewObjectID())

	_, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{
		IsPaid:      boolPtr(false),
		IsDelivered: boolPtr(false),
		Actor:       admin,
	})
	require.NoError(t, err)

	assert.Empty(t, mem.Logs())
	assert.Empty(t, notifier.calls)
}

func TestUpdateStatusRepeatedDeliveryNotifiesOnce(t *testing.T) {
	svc, mem, notifier := newTestService(t)
	order := seedOrder(mem, seedUser(mem).ID, primitive.NewObjectID())

	for i := 0; i < 2; i++ {
		_, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{IsDelivered: boolPtr(true), Actor: admin})
		require.NoError(t, err)
	}

	assert.Len(t, notifier.calls, 1)
	assert.Len(t, mem.Logs(), 1)
}

func TestUpdateStatusPaidAndUnpaid(t *testing.T) {
	svc, mem, notifier := newTestService(t)
	order := seedOrder(mem, seedUser(mem).ID, primitive.NewObjectID())

	paid, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{IsPaid: boolPtr(true), Actor: admin})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)

	unpaid, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{IsPaid: boolPtr(false), Actor: admin})
	require.NoError(t, err)
	assert.False(t, unpaid.IsPaid)
	assert.Nil(t, unpaid.PaidAt)

	logs := mem.Logs()
	require.Len(t, logs, 2)
	assert.Contains(t, logs[1].Reason, "not paid")
	assert.Empty(t, notifier.calls)
}

func TestUpdateStatusNotificationFailureIsNotAnError(t *testing.T) {
	svc, mem, notifier := newTestService(t)
	notifier.err = errors.New("smtp down")
	order := seedOrder(mem, seedUser(mem).ID, primitive.NewObjectID())

	updated, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{IsDelivered: boolPtr(true), Actor: admin})
	require.NoError(t, err)
	assert.True(t, updated.IsDelivered)
	assert.Len(t, notifier.calls, 1)
}

func TestUpdateStatusMissingRecipientSkipsNotification(t *testing.T) {
	svc, mem, notifier := newTestService(t)
	order := seedOrder(mem, primitive.NewObjectID(), primitive.NewObjectID())

	_, err := svc.UpdateStatus(context.Background(), order.ID, StatusUpdate{IsDelivered: boolPtr(true), Actor: admin})
	require.NoError(t, err)
	assert.Empty(t, notifier.calls)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateStatus(context.Background(), primitive.NewObjectID(), StatusUpdate{IsPaid: boolPtr(true)})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
