package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message between two users. ParentID links a reply
// to the message it answers; it is fixed at creation and never updated,
// so the reply graph is always an acyclic tree.
type Message struct {
	ID         string     `json:"id" gorm:"primaryKey;type:text"`
	SenderID   string     `json:"senderId" gorm:"index:idx_messages_sender_created,priority:1;not null"`
	Sender     User       `json:"sender,omitempty" gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	ReceiverID string     `json:"receiverId" gorm:"index:idx_messages_receiver_read,priority:1;not null"`
	Receiver   User       `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE"`
	Content    string     `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"index:idx_messages_sender_created,priority:2"`
	Edited     bool       `json:"edited" gorm:"default:false"`
	EditedByID *string    `json:"editedById,omitempty"`
	EditedAt   *time.Time `json:"editedAt,omitempty"`
	Read       bool       `json:"read" gorm:"index:idx_messages_receiver_read,priority:2;default:false"`
	ParentID   *string    `json:"parentId,omitempty" gorm:"index"`
	Parent     *Message   `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return
}

// IsReply reports whether the message answers another message.
func (m *Message) IsReply() bool {
	return m.ParentID != nil
}

// MessageHistory is one pre-edit snapshot of a message body. Rows are
// append-only; the newest snapshot is the most recent edit.
type MessageHistory struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	MessageID  string    `json:"messageId" gorm:"index;not null"`
	Message    Message   `json:"-" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	OldContent string    `json:"oldContent" gorm:"type:text;not null"`
	EditorID   *string   `json:"editorId,omitempty"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

func (h *MessageHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	return
}
