package services

import (
	"fmt"
	"unicode/utf8"

	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/pkg/errors"
	"gorm.io/gorm"
)

// previewLength caps how much of a message body appears in its
// notification text.
const previewLength = 50

// notifyCreated writes the receiver's notification for a freshly
// created message, inside the creating transaction. Replies produce a
// reply notification, everything else a plain new-message one. Never
// called for edits or read-state changes.
func notifyCreated(tx *gorm.DB, msg *models.Message, senderName string) error {
	kind := models.NotificationTypeMessage
	if msg.IsReply() {
		kind = models.NotificationTypeReply
	}

	var content string
	if kind == models.NotificationTypeReply {
		content = fmt.Sprintf("%s replied to your message: %s", senderName, preview(msg.Content))
	} else {
		content = fmt.Sprintf("New message from %s: %s", senderName, preview(msg.Content))
	}

	notification := models.Notification{
		UserID:    msg.ReceiverID,
		MessageID: msg.ID,
		Type:      kind,
		Content:   content,
	}
	return tx.Create(&notification).Error
}

// preview truncates a body to previewLength runes, marking the cut.
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "..."
}

// ListNotifications returns the newest notifications for a user.
func ListNotifications(userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnreadNotifications counts a user's unread notifications.
func CountUnreadNotifications(userID string) (int64, error) {
	var count int64
	err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead flips one notification to read. Only the
// recipient may do so.
func MarkNotificationRead(notificationID, userID string) error {
	var notification models.Notification
	if err := database.DB.First(&notification, "id = ?", notificationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NotFound("Notification not found")
		}
		return err
	}

	if notification.UserID != userID {
		return errors.Forbidden("Notification belongs to another user")
	}
	if notification.Read {
		return nil
	}

	return database.DB.Model(&notification).Update("read", true).Error
}

// MarkAllNotificationsRead flips every unread notification for the
// user, returning how many were updated.
func MarkAllNotificationsRead(userID string) (int64, error) {
	res := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}
