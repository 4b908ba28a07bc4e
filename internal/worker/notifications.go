package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationType string

const (
	NotifShipping  NotificationType = "shipping"
	NotifDelivery  NotificationType = "delivery"
	NotifLowStock  NotificationType = "low_stock"
	NotifPromotion NotificationType = "promotion"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

type NotificationStore interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationRepo:
//
//	notifications(id TEXT PRIMARY KEY, user_id, type, title, message,
//	              data JSONB, read BOOL, created_at)
type NotificationRepo struct{ DB *pgxpool.Pool }

func (r *NotificationRepo) Create(ctx context.Context, n *Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, user_id, type, title, message, data, read)
		VALUES ($1,$2,$3,$4,$5,$6,false)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data)
	return err
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, type, title, message, data, read, created_at
		FROM notifications WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}

// NotificationWorker maps task events to user-facing notification rows.
// Unknown task types are logged and dropped: they will not become
// processable later.
type NotificationWorker struct {
	Store NotificationStore
}

func (w *NotificationWorker) HandleNotificationTask(ctx context.Context, env events.Envelope) error {
	n, known, err := mapNotification(env)
	if !known {
		log.Printf("notification worker: unknown task type %s, dropping %s", env.EventType, env.EventID)
		return nil
	}
	if err != nil {
		log.Printf("notification worker: drop %s: %v", env.EventID, err)
		return nil
	}

	n.ID = uuid.NewString()
	if err := w.Store.Create(ctx, n); err != nil {
		return err
	}
	log.Printf("notification worker: %s created for user %s", env.EventType, n.UserID)
	return nil
}

func mapNotification(env events.Envelope) (*Notification, bool, error) {
	switch env.EventType {
	case events.TaskShippingNotification:
		p, err := events.Decode[events.ShippingNotificationPayload](env)
		if err != nil {
			return nil, true, err
		}
		return &Notification{
			UserID:  p.UserID,
			Type:    NotifShipping,
			Title:   "Order Shipped",
			Message: fmt.Sprintf("Your order #%s has been shipped. Status: %s", p.OrderID, p.Status),
			Data:    env.Payload,
		}, true, nil

	case events.TaskDeliveryNotification:
		p, err := events.Decode[events.DeliveryNotificationPayload](env)
		if err != nil {
			return nil, true, err
		}
		return &Notification{
			UserID:  p.UserID,
			Type:    NotifDelivery,
			Title:   "Order Delivered",
			Message: fmt.Sprintf("Your order #%s has been delivered successfully!", p.OrderID),
			Data:    env.Payload,
		}, true, nil

	case events.TaskLowStockAlert:
		p, err := events.Decode[events.LowStockAlertPayload](env)
		if err != nil {
			return nil, true, err
		}
		adminID := p.AdminID
		if adminID == "" {
			adminID = "admin"
		}
		return &Notification{
			UserID:  adminID,
			Type:    NotifLowStock,
			Title:   "Low Stock Alert",
			Message: fmt.Sprintf("Product %q is running low on stock. Current quantity: %d", p.ProductName, p.Quantity),
			Data:    env.Payload,
		}, true, nil

	case events.TaskAbandonedCartReminder:
		p, err := events.Decode[events.AbandonedCartReminderPayload](env)
		if err != nil {
			return nil, true, err
		}
		return &Notification{
			UserID:  p.UserID,
			Type:    NotifPromotion,
			Title:   "Don't Forget Your Cart",
			Message: fmt.Sprintf("You have %d item(s) in your cart. Complete your purchase now!", p.ItemsCount),
			Data:    env.Payload,
		}, true, nil
	}
	return nil, false, nil
}
