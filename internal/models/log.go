package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LogAction string

const (
	ActionCreate  LogAction = "create"
	ActionUpdate  LogAction = "update"
	ActionDelete  LogAction = "delete"
	ActionArchive LogAction = "archive"
	ActionRestore LogAction = "restore"
)

type UserDetails struct {
	FullName string `bson:"fullName" json:"fullName"`
	Email    string `bson:"email" json:"email"`
}

// Log is an append-only audit entry for an admin action on a product.
type Log struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User        string             `bson:"user" json:"user"`
	Action      LogAction          `bson:"action" json:"action"`
	Reason      string             `bson:"reason" json:"reason"`
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	UserDetails UserDetails        `bson:"userDetails" json:"userDetails"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Actor identifies who performed an audited action.
type Actor struct {
	ID       string
	FullName string
	Email    string
}

func NewLog(actor Actor, action LogAction, productID primitive.ObjectID, reason string, at time.Time) Log {
	return Log{
		User:        actor.ID,
		Action:      action,
		Reason:      reason,
		ProductID:   productID,
		UserDetails: UserDetails{FullName: actor.FullName, Email: actor.Email},
		CreatedAt:   at,
	}
}
