package auth

import (
	"deckforge/auth-api/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me returns the authenticated user's own view, including the email
func Me(c *gin.Context) {
	user := c.MustGet("currentUser").(*model.User)

	c.JSON(http.StatusOK, gin.H{
		"user": user.Self(),
	})
}
