package auth

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// ListProviders tells the frontend which OAuth login buttons to render
func ListProviders(providers map[string]*oauthProvider) gin.HandlerFunc {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"providers": names,
		})
	}
}
