package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Logout only acknowledges. Tokens are stateless, the client drops them.
// Kept as an endpoint so a blocklist can slot in here later without a
// client change
func Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
	})
}
