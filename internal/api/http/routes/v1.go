package routes

import (
	"log/slog"
	"time"

	"github.com/bidcraft/backend/internal/admin"
	"github.com/bidcraft/backend/internal/auction"
	"github.com/bidcraft/backend/internal/auth"
	"github.com/bidcraft/backend/internal/cache"
	"github.com/bidcraft/backend/internal/users"

	"github.com/gin-gonic/gin"
)

type V1Deps struct {
	Auctions      *auction.Service
	Accounts      *users.Service
	Tokens        *auth.TokenManager
	OverviewCache *cache.OverviewCache
	Log           *slog.Logger

	// Clock overrides wall-clock time in the admin stats handler; nil means
	// time.Now.
	Clock func() time.Time
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	requireAuth := auth.RequireAuth(dep.Tokens, dep.Accounts)

	auth.Register(api.Group("/auth"), dep.Accounts, dep.Tokens)

	auctionHandler := auction.NewHandler(dep.Auctions, dep.OverviewCache, dep.Log)
	auctionHandler.RegisterProjectRoutes(api.Group("/projects"), requireAuth)
	auctionHandler.RegisterDashboardRoutes(api, requireAuth)

	adminHandler := admin.NewHandler(dep.Accounts, dep.Auctions, dep.Log)
	if dep.Clock != nil {
		adminHandler.WithClock(dep.Clock)
	}
	adminHandler.Register(api, requireAuth)
}
