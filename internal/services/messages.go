package services

import (
	"strings"
	"time"

	"github.com/pushp314/courier-backend/internal/config"
	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/internal/ratelimit"
	"github.com/pushp314/courier-backend/pkg/errors"
	"github.com/pushp314/courier-backend/pkg/logger"
	"gorm.io/gorm"
)

// messageLimiter guards message creation per originating address. It is
// deliberately outside the storage transaction: admission is advisory
// and must not block on database I/O.
var messageLimiter *ratelimit.Limiter

// InitRateLimiter builds the message-creation limiter from config.
// Call once at startup, after config.LoadConfig.
func InitRateLimiter() {
	messageLimiter = ratelimit.New(
		config.AppConfig.MessageRateLimit,
		time.Duration(config.AppConfig.MessageRateWindowSeconds)*time.Second,
	)
}

// SetRateLimiter swaps the limiter, for tests and custom wiring.
func SetRateLimiter(l *ratelimit.Limiter) {
	messageLimiter = l
}

// CreateMessage persists a new message from sender to receiver, with an
// optional parent when the message is a reply. The receiver's
// notification is written in the same transaction, so either both rows
// exist afterward or neither does. addr is the admission key for rate
// limiting, typically the client IP.
func CreateMessage(senderID, receiverID, content string, parentID *string, addr string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.BadRequest("Message content cannot be empty")
	}

	if messageLimiter != nil && addr != "" {
		now := time.Now()
		if !messageLimiter.TryAdmit(addr, now) {
			retryAfter := messageLimiter.RetryAfter(addr, now)
			logger.Warn().
				Str("addr", addr).
				Dur("retryAfter", retryAfter).
				Msg("Message creation rate limit exceeded")
			return nil, errors.TooManyRequests("Message rate limit exceeded", retryAfter)
		}
	}

	var msg models.Message
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var sender models.User
		if err := tx.First(&sender, "id = ?", senderID).Error; err != nil {
			return userLookupError(err, "Sender not found")
		}
		var receiver models.User
		if err := tx.First(&receiver, "id = ?", receiverID).Error; err != nil {
			return userLookupError(err, "Receiver not found")
		}

		if parentID != nil {
			var parent models.Message
			if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return errors.NotFound("Parent message not found")
				}
				return err
			}
		}

		msg = models.Message{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Content:    content,
			ParentID:   parentID,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		// Derived state: the receiver's notification commits or rolls
		// back together with the message row.
		return notifyCreated(tx, &msg, sender.Username)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessage replaces the message body, archiving the previous content
// first. Only the sender may edit; submitting the identical body is a
// no-op: no history row, no edited flag change.
func EditMessage(messageID, editorID, newContent string) (*models.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, errors.BadRequest("Message content cannot be empty")
	}

	var msg models.Message
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("Message not found")
			}
			return err
		}

		if editorID != "" && editorID != msg.SenderID {
			return errors.Forbidden("Only the sender can edit a message")
		}

		if msg.Content == newContent {
			return nil
		}

		if err := recordEdit(tx, &msg, editorID); err != nil {
			return err
		}

		now := time.Now()
		editor := editorID
		if editor == "" {
			editor = msg.SenderID
		}

		// Guard on the body we read so a racing edit loses cleanly
		// instead of silently clobbering history.
		res := tx.Model(&models.Message{}).
			Where("id = ? AND content = ?", msg.ID, msg.Content).
			Updates(map[string]interface{}{
				"content":      newContent,
				"edited":       true,
				"edited_by_id": editor,
				"edited_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Conflict("Message was modified concurrently")
		}

		msg.Content = newContent
		msg.Edited = true
		msg.EditedByID = &editor
		msg.EditedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkMessageRead flags a message read by its receiver. Repeated calls
// are no-ops.
func MarkMessageRead(messageID, readerID string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("Message not found")
			}
			return err
		}

		if msg.ReceiverID != readerID {
			return errors.Forbidden("Only the receiver can mark a message read")
		}
		if msg.Read {
			return nil
		}

		return tx.Model(&msg).Update("read", true).Error
	})
}

// DeleteUser removes an account and everything hanging off it: messages
// sent or received (with their reply descendants, edit history and
// notifications) and every notification addressed to the user. The
// whole cleanup commits atomically; a failure anywhere rolls the
// cascade back.
func DeleteUser(userID string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("User not found")
			}
			return err
		}

		doomed, err := collectUserMessages(tx, userID)
		if err != nil {
			return err
		}

		if len(doomed) > 0 {
			if err := tx.Where("message_id IN ?", doomed).Delete(&models.MessageHistory{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", doomed).Delete(&models.Notification{}).Error; err != nil {
				return err
			}
			// Children before parents, for stores that enforce the
			// self-referential foreign key eagerly.
			for i := len(doomed) - 1; i >= 0; i-- {
				if err := tx.Where("id = ?", doomed[i]).Delete(&models.Message{}).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		logger.Info().
			Str("userId", userID).
			Int("messagesRemoved", len(doomed)).
			Msg("User account and related data deleted")
		return nil
	})
}

// collectUserMessages gathers ids of every message sent or received by
// the user plus all reply descendants of those messages, parents before
// children.
func collectUserMessages(tx *gorm.DB, userID string) ([]string, error) {
	var roots []string
	if err := tx.Model(&models.Message{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at asc").
		Pluck("id", &roots).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(roots))
	ordered := make([]string, 0, len(roots))
	for _, id := range roots {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}

	frontier := append([]string(nil), ordered...)
	for len(frontier) > 0 {
		var children []string
		if err := tx.Model(&models.Message{}).
			Where("parent_id IN ?", frontier).
			Order("created_at asc").
			Pluck("id", &children).Error; err != nil {
			return nil, err
		}

		var next []string
		for _, id := range children {
			if !seen[id] {
				seen[id] = true
				ordered = append(ordered, id)
				next = append(next, id)
			}
		}
		frontier = next
	}
	return ordered, nil
}

func userLookupError(err error, msg string) error {
	if err == gorm.ErrRecordNotFound {
		return errors.NotFound(msg)
	}
	return err
}
