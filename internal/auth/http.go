package auth

import (
	"errors"
	"net/http"

	"github.com/bidcraft/backend/internal/users"
	"github.com/gin-gonic/gin"
)

// Handler serves registration and login.
type Handler struct {
	accounts *users.Service
	tokens   *TokenManager
}

func Register(rg *gin.RouterGroup, accounts *users.Service, tokens *TokenManager) {
	h := &Handler{accounts: accounts, tokens: tokens}

	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	u, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, users.Role(req.Role))
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "email already registered"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
	default:
		c.JSON(http.StatusCreated, gin.H{"ok": true, "id": u.ID, "email": u.Email, "role": u.Role})
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	u, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, users.ErrAccountBanned):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "account banned"})
		return
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid email or password"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
		return
	}

	token, err := h.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token, "user": u})
}
