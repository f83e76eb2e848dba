package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"github.com/pushp314/courier-backend/internal/services"
)

// GetProfile GET /users/me
func GetProfile(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteAccount DELETE /users/me — removes the account and cascades
// over messages, histories and notifications in one transaction.
func DeleteAccount(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	if err := services.DeleteUser(userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
