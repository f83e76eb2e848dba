package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeMessage NotificationType = "message"
	NotificationTypeReply   NotificationType = "reply"
)

// Notification is created exactly once per received message, in the same
// transaction as the message itself.
type Notification struct {
	ID        string           `json:"id" gorm:"primaryKey;type:text"`
	UserID    string           `json:"userId" gorm:"index:idx_notifications_user_read,priority:1;not null"` // Recipient
	User      User             `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	MessageID string           `json:"messageId" gorm:"index;not null"`
	Message   Message          `json:"-" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	Type      NotificationType `json:"type" gorm:"type:varchar(20);not null"`
	Content   string           `json:"content" gorm:"type:text"`
	Read      bool             `json:"read" gorm:"index:idx_notifications_user_read,priority:2;default:false"`
	CreatedAt time.Time        `json:"createdAt" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return
}
