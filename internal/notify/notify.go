// Package notify delivers customer notifications for order events.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"coopstore/internal/models"
)

var ErrNoRecipient = errors.New("recipient has no email address")

// EmailJob is the message an email worker consumes from the queue.
type EmailJob struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Name     string    `json:"name"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	OrderID  string    `json:"orderId"`
	QueuedAt time.Time `json:"queuedAt"`
}

func deliveredJob(order *models.Order, recipient *models.User, now time.Time) (EmailJob, error) {
	if recipient == nil || strings.TrimSpace(recipient.Email) == "" {
		return EmailJob{}, ErrNoRecipient
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nYour order %s has been delivered.\n\n", recipient.Name, order.ID.Hex())
	for _, item := range order.OrderItems {
		fmt.Fprintf(&body, "- %s x%d\n", item.Name, item.Qty)
	}
	fmt.Fprintf(&body, "\nTotal: %.2f\n", order.TotalPrice)

	return EmailJob{
		ID:       uuid.NewString(),
		To:       recipient.Email,
		Name:     recipient.Name,
		Subject:  "Your order has been delivered",
		Body:     body.String(),
		OrderID:  order.ID.Hex(),
		QueuedAt: now,
	}, nil
}

// Queue pushes email jobs onto a Redis list for an out-of-process mailer.
type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Dial connects to the Redis server at url and checks it answers.
func Dial(ctx context.Context, url, key string) (*Queue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewQueue(client, key), nil
}

func (q *Queue) OrderDelivered(ctx context.Context, order *models.Order, recipient *models.User) error {
	job, err := deliveredJob(order, recipient, time.Now())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue email %s: %w", job.ID, err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Logger writes notifications to the process log. It stands in when no
// queue is configured.
type Logger struct{}

func (Logger) OrderDelivered(ctx context.Context, order *models.Order, recipient *models.User) error {
	job, err := deliveredJob(order, recipient, time.Now())
	if err != nil {
		return err
	}
	log.Printf("[NOTIFY] [INFO] email %s to=%s subject=%q order=%s", job.ID, job.To, job.Subject, job.OrderID)
	return nil
}
