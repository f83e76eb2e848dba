package services

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/internal/ratelimit"
	"github.com/pushp314/courier-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCreateMessage_CreatesNotification(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	msg, err := CreateMessage("alice", "bob", "hello", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "bob", msg.ReceiverID)
	assert.False(t, msg.Read)
	assert.False(t, msg.Edited)

	var notifications []models.Notification
	database.DB.Where("user_id = ?", "bob").Find(&notifications)
	assert.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTypeMessage, notifications[0].Type)
	assert.Equal(t, msg.ID, notifications[0].MessageID)
	assert.Contains(t, notifications[0].Content, "New message from alice")
	assert.Contains(t, notifications[0].Content, "hello")
	assert.False(t, notifications[0].Read)
}

func TestCreateMessage_ReplyNotificationKind(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	root, err := CreateMessage("alice", "bob", "hello", nil, "")
	assert.NoError(t, err)

	reply, err := CreateMessage("bob", "alice", "hi back", &root.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, root.ID, *reply.ParentID)

	var notification models.Notification
	err = database.DB.Where("user_id = ?", "alice").First(&notification).Error
	assert.NoError(t, err)
	assert.Equal(t, models.NotificationTypeReply, notification.Type)
	assert.Contains(t, notification.Content, "bob replied to your message")
}

func TestCreateMessage_TruncatesLongPreview(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	long := strings.Repeat("a", 80)
	_, err := CreateMessage("alice", "bob", long, nil, "")
	assert.NoError(t, err)

	var notification models.Notification
	database.DB.Where("user_id = ?", "bob").First(&notification)
	assert.Contains(t, notification.Content, strings.Repeat("a", 50)+"...")
	assert.NotContains(t, notification.Content, strings.Repeat("a", 51))
}

func TestCreateMessage_EmptyBodyRejected(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	_, err := CreateMessage("alice", "bob", "   \n\t ", nil, "")
	appErr, ok := errors.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	var count int64
	database.DB.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateMessage_UnknownPartiesRejected(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")

	_, err := CreateMessage("alice", "ghost", "hello", nil, "")
	assert.True(t, errors.IsNotFound(err))

	_, err = CreateMessage("ghost", "alice", "hello", nil, "")
	assert.True(t, errors.IsNotFound(err))

	missing := "no-such-message"
	_, err = CreateMessage("alice", "alice", "hello", &missing, "")
	assert.True(t, errors.IsNotFound(err))

	// Nothing committed, including notifications
	var count int64
	database.DB.Model(&models.Notification{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateMessage_RateLimited(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	SetRateLimiter(ratelimit.New(2, time.Minute))
	defer SetRateLimiter(nil)

	_, err := CreateMessage("alice", "bob", "one", nil, "10.0.0.1")
	assert.NoError(t, err)
	_, err = CreateMessage("alice", "bob", "two", nil, "10.0.0.1")
	assert.NoError(t, err)

	_, err = CreateMessage("alice", "bob", "three", nil, "10.0.0.1")
	appErr, ok := errors.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Code)
	assert.Greater(t, appErr.RetryAfter, time.Duration(0))

	// A different address is unaffected
	_, err = CreateMessage("bob", "alice", "fine", nil, "10.0.0.2")
	assert.NoError(t, err)

	var count int64
	database.DB.Model(&models.Message{}).Where("sender_id = ?", "alice").Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestEditMessage_RecordsHistory(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	msg, err := CreateMessage("alice", "bob", "first draft", nil, "")
	assert.NoError(t, err)

	edited, err := EditMessage(msg.ID, "alice", "second draft")
	assert.NoError(t, err)
	assert.Equal(t, "second draft", edited.Content)
	assert.True(t, edited.Edited)
	assert.NotNil(t, edited.EditedAt)
	assert.Equal(t, "alice", *edited.EditedByID)

	var history []models.MessageHistory
	database.DB.Where("message_id = ?", msg.ID).Find(&history)
	assert.Len(t, history, 1)
	assert.Equal(t, "first draft", history[0].OldContent)
	assert.Equal(t, "alice", *history[0].EditorID)
}

func TestEditMessage_SameContentIsNoOp(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	msg, err := CreateMessage("alice", "bob", "hello", nil, "")
	assert.NoError(t, err)

	same, err := EditMessage(msg.ID, "alice", "hello")
	assert.NoError(t, err)
	assert.False(t, same.Edited)

	var count int64
	database.DB.Model(&models.MessageHistory{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestEditMessage_HistoryOrderNewestFirst(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	msg, _ := CreateMessage("alice", "bob", "v1", nil, "")

	_, err := EditMessage(msg.ID, "alice", "v2")
	assert.NoError(t, err)
	_, err = EditMessage(msg.ID, "", "v3")
	assert.NoError(t, err)

	history, err := ListHistory(msg.ID)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "v2", history[0].OldContent)
	assert.Equal(t, "v1", history[1].OldContent)
	// Editor falls back to the sender when unspecified
	assert.Equal(t, "alice", *history[0].EditorID)
}

func TestEditMessage_UnknownID(t *testing.T) {
	setupTestDB(t)

	_, err := EditMessage("missing", "alice", "new body")
	assert.True(t, errors.IsNotFound(err))
}

func TestEditMessage_OnlySender(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")
	createTestUser(t, "mallory", "mallory")

	msg, _ := CreateMessage("alice", "bob", "original", nil, "")

	// Neither a third party nor the receiver may rewrite the message
	for _, editor := range []string{"mallory", "bob"} {
		_, err := EditMessage(msg.ID, editor, "defaced")
		appErr, ok := errors.AsAppError(err)
		assert.True(t, ok)
		assert.Equal(t, http.StatusForbidden, appErr.Code)
	}

	var reloaded models.Message
	database.DB.First(&reloaded, "id = ?", msg.ID)
	assert.Equal(t, "original", reloaded.Content)
	assert.False(t, reloaded.Edited)

	var histories int64
	database.DB.Model(&models.MessageHistory{}).Count(&histories)
	assert.Equal(t, int64(0), histories)
}

func TestMarkMessageRead_Idempotent(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")

	msg, _ := CreateMessage("alice", "bob", "hello", nil, "")

	assert.NoError(t, MarkMessageRead(msg.ID, "bob"))
	assert.NoError(t, MarkMessageRead(msg.ID, "bob"))

	var reloaded models.Message
	database.DB.First(&reloaded, "id = ?", msg.ID)
	assert.True(t, reloaded.Read)
}

func TestMarkMessageRead_OnlyReceiver(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")
	createTestUser(t, "carol", "carol")

	msg, _ := CreateMessage("alice", "bob", "hello", nil, "")

	err := MarkMessageRead(msg.ID, "carol")
	appErr, ok := errors.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	err = MarkMessageRead("missing", "bob")
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteUser_CascadesEverything(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "alice", "alice")
	createTestUser(t, "bob", "bob")
	createTestUser(t, "carol", "carol")

	// alice -> bob, bob replies, carol replies to the reply
	root, _ := CreateMessage("alice", "bob", "hello", nil, "")
	reply, _ := CreateMessage("bob", "alice", "hi", &root.ID, "")
	_, err := CreateMessage("carol", "bob", "joining in", &reply.ID, "")
	assert.NoError(t, err)

	// carol <-> bob traffic unrelated to alice
	kept, _ := CreateMessage("carol", "bob", "separate thread", nil, "")
	_, err = EditMessage(root.ID, "alice", "hello edited")
	assert.NoError(t, err)

	assert.NoError(t, DeleteUser("alice"))

	var users int64
	database.DB.Model(&models.User{}).Where("id = ?", "alice").Count(&users)
	assert.Equal(t, int64(0), users)

	// Messages alice touched are gone, including descendants of her thread
	var messages []models.Message
	database.DB.Find(&messages)
	assert.Len(t, messages, 1)
	assert.Equal(t, kept.ID, messages[0].ID)

	// No history survives for deleted messages
	var histories int64
	database.DB.Model(&models.MessageHistory{}).Count(&histories)
	assert.Equal(t, int64(0), histories)

	// No notification references alice or her messages
	var notifications []models.Notification
	database.DB.Find(&notifications)
	assert.Len(t, notifications, 1)
	assert.Equal(t, kept.ID, notifications[0].MessageID)
	assert.Equal(t, "bob", notifications[0].UserID)
}

func TestDeleteUser_Unknown(t *testing.T) {
	setupTestDB(t)

	assert.True(t, errors.IsNotFound(DeleteUser("missing")))
}
