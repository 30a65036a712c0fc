package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/setoos/goforms/internal/utils"
)

// AuthMiddleware validates the bearer token against Casdoor and stores the
// subject and role on the request context.
func AuthMiddleware(client *casdoorsdk.Client, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing authorization header",
			})
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid authorization header format",
			})
			return
		}

		claims, err := client.ParseJwtToken(token)
		if err != nil {
			logger.Warn("Token validation failed", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set("user_id", claims.User.Id)
		c.Set("user_name", claims.User.Name)
		c.Set("user_email", claims.User.Email)
		if len(claims.User.Roles) > 0 {
			c.Set("user_role", claims.User.Roles[0].Name)
		}
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the user when a token is present but lets
// anonymous requests through. The learner-facing quiz endpoints use it so
// public quizzes stay publicly takeable.
func OptionalAuthMiddleware(client *casdoorsdk.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
			if claims, err := client.ParseJwtToken(token); err == nil {
				c.Set("user_id", claims.User.Id)
				c.Set("user_name", claims.User.Name)
			}
		}
		c.Next()
	}
}

// RequestIDMiddleware echoes or assigns the request correlation header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set("X-Request-ID", requestID)
		}
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
