package services

import (
	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/pkg/errors"
	"gorm.io/gorm"
)

// recordEdit archives the message body about to be replaced. Called
// only from EditMessage, only when the body actually changes, inside
// the edit's transaction. When no editor is supplied the original
// sender is assumed.
func recordEdit(tx *gorm.DB, msg *models.Message, editorID string) error {
	editor := editorID
	if editor == "" {
		editor = msg.SenderID
	}

	history := models.MessageHistory{
		MessageID:  msg.ID,
		OldContent: msg.Content,
		EditorID:   &editor,
	}
	return tx.Create(&history).Error
}

// ListHistory returns a message's edit snapshots, newest first.
func ListHistory(messageID string) ([]models.MessageHistory, error) {
	var msg models.Message
	if err := database.DB.Select("id").First(&msg, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("Message not found")
		}
		return nil, err
	}

	var history []models.MessageHistory
	if err := database.DB.
		Where("message_id = ?", messageID).
		Order("created_at desc").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}
