package services

import (
	"sort"

	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/pkg/errors"
	"gorm.io/gorm"
)

// messageBefore is the thread ordering: creation time ascending, id as
// the tiebreak.
func messageBefore(a, b models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// findThreadRoot climbs the parent chain from messageID to the thread
// root. The walk is unbounded; parents are fixed at creation so the
// chain cannot cycle.
func findThreadRoot(messageID string) (*models.Message, error) {
	var msg models.Message
	if err := database.DB.First(&msg, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("Message not found")
		}
		return nil, err
	}

	root := msg
	for root.ParentID != nil {
		var parent models.Message
		if err := database.DB.First(&parent, "id = ?", *root.ParentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				// Parent row vanished under us (cascading delete).
				return nil, errors.Conflict("Thread was deleted concurrently")
			}
			return nil, err
		}
		root = parent
	}
	return &root, nil
}

// ResolveThread returns every message in the thread containing
// messageID, ordered by creation time. Descendants are collected with
// one query per tree level. Any member of a thread resolves to the
// same set.
func ResolveThread(messageID string) ([]models.Message, error) {
	root, err := findThreadRoot(messageID)
	if err != nil {
		return nil, err
	}

	thread := []models.Message{*root}
	frontier := []string{root.ID}
	for len(frontier) > 0 {
		var replies []models.Message
		if err := database.DB.
			Where("parent_id IN ?", frontier).
			Order("created_at asc").
			Find(&replies).Error; err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, reply := range replies {
			frontier = append(frontier, reply.ID)
		}
		thread = append(thread, replies...)
	}

	sort.SliceStable(thread, func(i, j int) bool {
		return messageBefore(thread[i], thread[j])
	})
	return thread, nil
}

// ResolveThreadPage returns one bounded page of the thread containing
// messageID, in the same order ResolveThread produces, without
// materializing the whole tree. A reply is always newer than its
// parent, so expanding candidates oldest-first emits messages in
// chronological order and the walk can stop after offset+limit
// messages.
func ResolveThreadPage(messageID string, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	root, err := findThreadRoot(messageID)
	if err != nil {
		return nil, err
	}

	page := make([]models.Message, 0, limit)
	candidates := []models.Message{*root}
	emitted := 0
	for len(candidates) > 0 && len(page) < limit {
		next := candidates[0]
		candidates = candidates[1:]

		if emitted >= offset {
			page = append(page, next)
		}
		emitted++

		var replies []models.Message
		if err := database.DB.
			Where("parent_id = ?", next.ID).
			Order("created_at asc").
			Find(&replies).Error; err != nil {
			return nil, err
		}
		candidates = append(candidates, replies...)
		sort.SliceStable(candidates, func(i, j int) bool {
			return messageBefore(candidates[i], candidates[j])
		})
	}
	return page, nil
}

// GetConversation returns the flat two-party message history between
// userID and otherID, oldest first, as one page.
func GetConversation(userID, otherID string, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var messages []models.Message
	err := database.DB.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at asc").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
