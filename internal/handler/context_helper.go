package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recruit-booking-api/internal/middleware"
	"github.com/noah-isme/recruit-booking-api/internal/models"
)

// currentClaims extracts the authenticated identity from the gin context.
func currentClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
