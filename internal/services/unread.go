package services

import (
	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
)

// The unread set is the (receiver_id, read) composite index over
// messages; there is no separate materialized state to drift out of
// sync with the rows themselves.

// unreadColumns keeps unread listings cheap: no body relations, just
// the summary fields the inbox needs.
const unreadColumns = "id, sender_id, receiver_id, content, created_at, read, parent_id"

// CountUnread returns how many unread messages the user has.
func CountUnread(userID string) (int64, error) {
	var count int64
	err := database.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// ListUnread returns one page of the user's unread messages, newest
// first, projected to summary columns.
func ListUnread(userID string, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var messages []models.Message
	err := database.DB.
		Select(unreadColumns).
		Where("receiver_id = ? AND read = ?", userID, false).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkManyRead marks the user's unread messages read — all of them, or
// just ids when provided — and returns how many rows changed.
func MarkManyRead(userID string, ids []string) (int64, error) {
	query := database.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND read = ?", userID, false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	res := query.Update("read", true)
	return res.RowsAffected, res.Error
}
