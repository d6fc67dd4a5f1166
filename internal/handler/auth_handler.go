package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/places-backend-go/pkg/response"
)

// AuthHandler issues API tokens from the shared secret
type AuthHandler struct {
	secret   string
	tokenTTL time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(secret string) *AuthHandler {
	return &AuthHandler{secret: secret, tokenTTL: 24 * time.Hour}
}

type tokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// PostToken handles POST /api/v1/auth/token
func (h *AuthHandler) PostToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Secret != h.secret {
		response.Error(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(h.tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	})

	signed, err := token.SignedString([]byte(h.secret))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to sign token", err)
		return
	}

	response.Success(c, gin.H{"token": signed})
}
