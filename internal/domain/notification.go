package domain

import "time"

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

type Notification struct {
	ID        string           `json:"id" firestore:"-"`
	UserID    string           `json:"user_id" firestore:"userId"`
	Title     string           `json:"title" firestore:"title"`
	Message   string           `json:"message" firestore:"message"`
	Type      NotificationType `json:"type" firestore:"type"`
	Link      string           `json:"link,omitempty" firestore:"link,omitempty"`
	Read      bool             `json:"read" firestore:"read"`
	Timestamp time.Time        `json:"timestamp" firestore:"timestamp"`
}
