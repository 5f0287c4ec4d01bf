package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler implements the operator password gate. The password is a
// shared secret for the control console, not a per-user identity; a valid
// login is exchanged for a short-lived JWT.
type AuthHandler struct {
	jwtSecret    string
	password     string
	passwordHash string
}

func NewAuthHandler(jwtSecret, password, passwordHash string) *AuthHandler {
	return &AuthHandler{
		jwtSecret:    jwtSecret,
		password:     password,
		passwordHash: passwordHash,
	}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.verify(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "operator",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(12 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed})
}

func (h *AuthHandler) verify(password string) bool {
	if h.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(h.password), []byte(password)) == 1
}
