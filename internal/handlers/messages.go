package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/internal/services"
)

// conversationCacheTTL bounds how stale a cached conversation page may
// get; pages simply expire rather than being invalidated on write.
const conversationCacheTTL = 60 * time.Second

type SendMessageInput struct {
	ReceiverID string  `json:"receiverId" binding:"required"`
	Content    string  `json:"content" binding:"required"`
	ParentID   *string `json:"parentId"`
}

type EditMessageInput struct {
	Content string `json:"content" binding:"required"`
}

type MarkManyReadInput struct {
	IDs []string `json:"ids"`
}

// fail hands the error to the error middleware for mapping.
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// SendMessage POST /messages
func SendMessage(c *gin.Context) {
	senderID := c.MustGet("userId").(string)

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := services.CreateMessage(senderID, input.ReceiverID, input.Content, input.ParentID, c.ClientIP())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// EditMessage PUT /messages/:id
func EditMessage(c *gin.Context) {
	editorID := c.MustGet("userId").(string)

	var input EditMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := services.EditMessage(c.Param("id"), editorID, input.Content)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// MarkMessageRead PUT /messages/:id/read
func MarkMessageRead(c *gin.Context) {
	readerID := c.MustGet("userId").(string)

	if err := services.MarkMessageRead(c.Param("id"), readerID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

// MarkManyMessagesRead PUT /messages/read — whole unread set, or just
// the ids in the body.
func MarkManyMessagesRead(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var input MarkManyReadInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	updated, err := services.MarkManyRead(userID, input.IDs)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetUnreadMessages GET /messages/unread
func GetUnreadMessages(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	limit, offset := pageParams(c)

	messages, err := services.ListUnread(userID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetUnreadCount GET /messages/unread/count
func GetUnreadCount(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	count, err := services.CountUnread(userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetThread GET /messages/:id/thread — one page of the conversation
// tree the message belongs to, flattened chronologically.
func GetThread(c *gin.Context) {
	limit, offset := pageParams(c)

	thread, err := services.ResolveThreadPage(c.Param("id"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

// GetMessageHistory GET /messages/:id/history — edit snapshots, newest
// first.
func GetMessageHistory(c *gin.Context) {
	history, err := services.ListHistory(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetConversation GET /conversations/:userId — flat two-party history,
// served from a short-TTL Redis cache when possible.
func GetConversation(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	otherID := c.Param("userId")
	limit, offset := pageParams(c)

	cacheKey := fmt.Sprintf("conversation:%s:%s:%d:%d", userID, otherID, limit, offset)
	var cached []models.Message
	if err := database.CacheGet(cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, gin.H{"messages": cached})
		return
	}

	messages, err := services.GetConversation(userID, otherID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}

	database.CacheSet(cacheKey, messages, conversationCacheTTL)

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
