package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bidcraft/backend/internal/auction"
	"github.com/bidcraft/backend/internal/auth"
	"github.com/bidcraft/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the admin surface: user management and platform stats.
type Handler struct {
	accounts *users.Service
	auctions *auction.Service
	log      *slog.Logger
	now      func() time.Time
}

func NewHandler(accounts *users.Service, auctions *auction.Service, log *slog.Logger) *Handler {
	return &Handler{accounts: accounts, auctions: auctions, log: log, now: time.Now}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Register(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	grp := api.Group("/admin", requireAuth, auth.RequireRole(users.RoleAdmin))

	grp.GET("/users", h.listUsers)
	grp.PATCH("/users/:id/ban", h.banUser)
	grp.GET("/stats", h.stats)
}

func (h *Handler) listUsers(c *gin.Context) {
	q := users.ListQuery{
		Text:     c.Query("q"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 10),
	}
	q.Normalize()

	items, total, err := h.accounts.List(c.Request.Context(), q)
	if err != nil {
		h.log.Error("admin: list users failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"total":    total,
		"page":     q.Page,
		"pageSize": q.PageSize,
	})
}

type banReq struct {
	Action string `json:"action"` // BAN | UNBAN
	Reason string `json:"reason"`
}

func (h *Handler) banUser(c *gin.Context) {
	userID := c.Param("id")
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid user id"})
		return
	}

	var req banReq
	if err := c.ShouldBindJSON(&req); err != nil || (req.Action != "BAN" && req.Action != "UNBAN") {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	status := users.StatusActive
	if req.Action == "BAN" {
		status = users.StatusBanned
	}

	u, err := h.accounts.SetStatus(c.Request.Context(), userID, status, req.Reason)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
	case err != nil:
		h.log.Error("admin: set status failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": u.Status})
	}
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now().UTC()

	usersTotal, byRole, byStatus, err := h.accounts.Stats(ctx)
	if err != nil {
		h.log.Error("admin: user stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
		return
	}

	projTotal, projOpen, projClosed, byCategory, err := h.auctions.Stats(ctx, now)
	if err != nil {
		h.log.Error("admin: project stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{
			"total":    usersTotal,
			"byRole":   byRole,
			"byStatus": byStatus,
		},
		"projects": gin.H{
			"total":      projTotal,
			"open":       projOpen,
			"closed":     projClosed,
			"byCategory": byCategory,
		},
		"asOf": now.Format(time.RFC3339),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
