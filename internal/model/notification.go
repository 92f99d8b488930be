package model

import "time"

// NotificationType tags which kind of community event produced a notification.
type NotificationType string

const (
	NotificationLost   NotificationType = "lost"
	NotificationFound  NotificationType = "found"
	NotificationBuy    NotificationType = "buy"
	NotificationSell   NotificationType = "sell"
	NotificationRental NotificationType = "rental"
)

// Notification is one inbox entry for one user. A broadcast event creates
// one row per user; rows are owned exclusively by UserID and are never
// visible across accounts.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ItemID    string           `json:"itemId,omitempty"`
	ItemKind  Kind             `json:"itemKind,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
