package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	orgIDKey  = contextKey("orgID")
	userIDKey = contextKey("userID")

	orgIDHeader  = "X-Org-ID"
	userIDHeader = "X-User-ID"

	// defaultUserID attributes writes when no caller identity is supplied.
	// Authentication itself lives outside this service.
	defaultUserID = "system"
)

// OrgScope resolves the organization (and acting user) for the request from
// headers and rejects requests that carry no organization.
func OrgScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetHeader(orgIDHeader)
		if orgID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": orgIDHeader + " header is required"})
			return
		}
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			userID = defaultUserID
		}
		c.Set(string(orgIDKey), orgID)
		c.Set(string(userIDKey), userID)
		c.Next()
	}
}

// GetOrgIDFromContext retrieves the organization ID resolved by OrgScope.
func GetOrgIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(orgIDKey))
	if !exists {
		return "", false
	}
	orgID, ok := val.(string)
	return orgID, ok
}

// GetUserIDFromContext retrieves the acting user ID resolved by OrgScope.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(userIDKey))
	if !exists {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok
}
