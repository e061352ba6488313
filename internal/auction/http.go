package auction

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bidcraft/backend/internal/auth"
	"github.com/bidcraft/backend/internal/cache"
	"github.com/bidcraft/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc   *Service
	cache *cache.OverviewCache
	log   *slog.Logger
}

func NewHandler(svc *Service, overviewCache *cache.OverviewCache, log *slog.Logger) *Handler {
	return &Handler{svc: svc, cache: overviewCache, log: log}
}

// RegisterProjectRoutes mounts the project/bid surface. Reads are public;
// writes are gated per role. requireAuth must be the middleware produced by
// auth.RequireAuth.
func (h *Handler) RegisterProjectRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.list)
	rg.POST("", requireAuth, auth.RequireRole(users.RoleBuyer), h.create)
	rg.GET("/overview", h.overview)
	rg.GET("/:id/bids", h.getBids)
	rg.POST("/:id/bids", requireAuth, auth.RequireRole(users.RoleProvider), h.placeBid)
	rg.PATCH("/:id/accept", requireAuth, auth.RequireRole(users.RoleBuyer), h.acceptBid)
}

// RegisterDashboardRoutes mounts the role-scoped listings.
func (h *Handler) RegisterDashboardRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	api.GET("/buyer/projects", requireAuth, auth.RequireRole(users.RoleBuyer), h.buyerProjects)
	api.GET("/provider/bids", requireAuth, auth.RequireRole(users.RoleProvider), h.providerBids)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, _ := auth.CurrentPrincipal(c)
	project, err := h.svc.CreateProject(c.Request.Context(), p.ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": project})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.ListProjects(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) getBids(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	board, err := h.svc.GetBids(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

type placeBidReq struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) placeBid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req placeBidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid bid amount"})
		return
	}

	p, _ := auth.CurrentPrincipal(c)
	res, err := h.svc.PlaceBid(c.Request.Context(), id, p.ID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "bidsCount": res.BidsCount, "lowestBid": res.LowestBid})
}

type acceptBidReq struct {
	ProviderID string  `json:"providerId"`
	Amount     float64 `json:"amount"`
}

func (h *Handler) acceptBid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req acceptBidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}
	if _, err := uuid.Parse(req.ProviderID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	p, _ := auth.CurrentPrincipal(c)
	accepted, err := h.svc.AcceptBid(c.Request.Context(), id, p.ID, req.ProviderID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "acceptedBid": accepted})
}

func (h *Handler) overview(c *gin.Context) {
	q := OverviewQuery{
		Category:  c.Query("category"),
		Text:      c.Query("q"),
		SortKey:   c.DefaultQuery("sortKey", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "descend"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 10),
	}
	q.Normalize()

	cacheKey := fmt.Sprintf("cat=%s&q=%s&sort=%s&ord=%s&p=%d&ps=%d",
		q.Category, q.Text, q.SortKey, q.SortOrder, q.Page, q.PageSize)
	if payload, ok := h.cache.Get(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}

	page, err := h.svc.Overview(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if payload, err := json.Marshal(page); err == nil {
		h.cache.Set(c.Request.Context(), cacheKey, payload)
		c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) buyerProjects(c *gin.Context) {
	p, _ := auth.CurrentPrincipal(c)
	items, err := h.svc.ListByBuyer(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": items})
}

func (h *Handler) providerBids(c *gin.Context) {
	p, _ := auth.CurrentPrincipal(c)
	items, err := h.svc.ListByProvider(c.Request.Context(), p.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": items})
}

// respondError maps engine errors onto the HTTP taxonomy: 400 validation,
// 403 self-bid, 404 unknown project, 409 invariant conflicts, 500 the rest.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidProject), errors.Is(err, ErrBidRejected):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrSelfBid):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrAlreadyAccepted),
		errors.Is(err, ErrDeadlinePassed),
		errors.Is(err, ErrBidNotLower),
		errors.Is(err, ErrAcceptConflict):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error("auction: request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server error"})
	}
}

func parseID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
