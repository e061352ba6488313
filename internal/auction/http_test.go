package auction_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidcraft/backend/internal/api/http/routes"
	"github.com/bidcraft/backend/internal/auction"
	"github.com/bidcraft/backend/internal/auth"
	"github.com/bidcraft/backend/internal/users"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testAPI struct {
	router *gin.Engine
	clock  *testClock
	repo   *users.MemoryRepo
	tokens *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	log := slog.New(slog.DiscardHandler)

	repo := users.NewMemoryRepo()
	accounts := users.NewService(repo, nil, log).WithClock(clock.Now)
	auctions := auction.NewService(auction.NewMemoryStore(), nil, log).WithClock(clock.Now)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	router := gin.New()
	routes.RegisterV1(router, routes.V1Deps{
		Auctions: auctions,
		Accounts: accounts,
		Tokens:   tokens,
		Log:      log,
		Clock:    clock.Now,
	})

	return &testAPI{router: router, clock: clock, repo: repo, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signup registers an account over the API and returns its id and token.
func (a *testAPI) signup(t *testing.T, role users.Role) (id, token string) {
	t.Helper()

	email := gofakeit.Email()
	password := "s3cret-" + uuid.NewString()

	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": password, "role": string(role),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

// admin accounts cannot self-register, seed one through the repo.
func (a *testAPI) seedAdmin(t *testing.T) string {
	t.Helper()

	u := &users.User{
		ID:        uuid.NewString(),
		Email:     gofakeit.Email(),
		Role:      users.RoleAdmin,
		Status:    users.StatusActive,
		CreatedAt: a.clock.Now(),
	}
	require.NoError(t, a.repo.Create(context.Background(), u))

	token, err := a.tokens.Issue(u.ID, string(u.Role))
	require.NoError(t, err)
	return token
}

func (a *testAPI) createProject(t *testing.T, buyerToken string, deadline time.Time) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/projects", buyerToken, gin.H{
		"title":       "Build a deck",
		"description": "Hardwood deck, 20sqm",
		"budgetMin":   1000,
		"budgetMax":   3000,
		"deadline":    deadline.Format(time.RFC3339),
		"category":    "carpentry",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Project.ID
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	_, buyerToken := api.signup(t, users.RoleBuyer)
	providerID, providerToken := api.signup(t, users.RoleProvider)

	projectID := api.createProject(t, buyerToken, api.clock.Now().Add(time.Hour))

	// anonymous reads work
	w := api.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/bids", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// provider undercuts twice, second bid at the same amount conflicts
	w = api.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/bids", providerToken, gin.H{"amount": 2000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/bids", providerToken, gin.H{"amount": 2000})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/bids", providerToken, gin.H{"amount": 1800})
	require.Equal(t, http.StatusOK, w.Code)

	var placed struct {
		BidsCount int     `json:"bidsCount"`
		LowestBid float64 `json:"lowestBid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))
	assert.Equal(t, 2, placed.BidsCount)
	assert.Equal(t, 1800.0, placed.LowestBid)

	// acceptance before the deadline conflicts
	accept := gin.H{"providerId": providerID, "amount": 1800}
	w = api.do(t, http.MethodPatch, "/api/v1/projects/"+projectID+"/accept", buyerToken, accept)
	assert.Equal(t, http.StatusConflict, w.Code)

	api.clock.Advance(2 * time.Hour)

	// wrong amount conflicts, exact pair wins
	w = api.do(t, http.MethodPatch, "/api/v1/projects/"+projectID+"/accept", buyerToken, gin.H{"providerId": providerID, "amount": 1799})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPatch, "/api/v1/projects/"+projectID+"/accept", buyerToken, accept)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// closed: no more bids, no second acceptances
	w = api.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/bids", providerToken, gin.H{"amount": 100})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPatch, "/api/v1/projects/"+projectID+"/accept", buyerToken, accept)
	assert.Equal(t, http.StatusConflict, w.Code)

	// dashboards reflect the activity
	w = api.do(t, http.MethodGet, "/api/v1/buyer/projects", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), projectID)

	w = api.do(t, http.MethodGet, "/api/v1/provider/bids", providerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), projectID)
}

func TestRouteGuards(t *testing.T) {
	api := newTestAPI(t)

	_, buyerToken := api.signup(t, users.RoleBuyer)
	_, providerToken := api.signup(t, users.RoleProvider)
	projectID := api.createProject(t, buyerToken, api.clock.Now().Add(time.Hour))

	t.Run("create requires auth", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/projects", "", gin.H{"title": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create requires buyer role", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/projects", providerToken, gin.H{"title": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("bid requires provider role", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/bids", buyerToken, gin.H{"amount": 500})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/buyer/projects", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed project id", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/projects/not-a-uuid/bids", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown project", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/projects/"+uuid.NewString()+"/bids", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/bids", providerToken, gin.H{"amount": -10})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBanTakesEffectOnNextRequest(t *testing.T) {
	api := newTestAPI(t)

	adminToken := api.seedAdmin(t)
	providerID, providerToken := api.signup(t, users.RoleProvider)

	// provider is fine before the ban
	w := api.do(t, http.MethodGet, "/api/v1/provider/bids", providerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPatch, "/api/v1/admin/users/"+providerID+"/ban", adminToken, gin.H{
		"action": "BAN", "reason": "spam bids",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// same still-valid token, now rejected by the per-request status check
	w = api.do(t, http.MethodGet, "/api/v1/provider/bids", providerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// unban restores access
	w = api.do(t, http.MethodPatch, "/api/v1/admin/users/"+providerID+"/ban", adminToken, gin.H{"action": "UNBAN"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/provider/bids", providerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminSurface(t *testing.T) {
	api := newTestAPI(t)

	adminToken := api.seedAdmin(t)
	_, buyerToken := api.signup(t, users.RoleBuyer)
	api.createProject(t, buyerToken, api.clock.Now().Add(time.Hour))

	t.Run("admin routes reject non-admins", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/admin/stats", buyerToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("list users", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/admin/users?pageSize=10", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Total int `json:"total"`
			Items []struct {
				Email string `json:"email"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("stats", func(t *testing.T) {
		w := api.do(t, http.MethodGet, "/api/v1/admin/stats", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Users struct {
				Total int `json:"total"`
			} `json:"users"`
			Projects struct {
				Total int `json:"total"`
				Open  int `json:"open"`
			} `json:"projects"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Users.Total)
		assert.Equal(t, 1, resp.Projects.Total)
		assert.Equal(t, 1, resp.Projects.Open)
	})

	t.Run("ban unknown user", func(t *testing.T) {
		w := api.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/admin/users/%s/ban", uuid.NewString()), adminToken, gin.H{"action": "BAN"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOverviewEndpoint(t *testing.T) {
	api := newTestAPI(t)
	_, buyerToken := api.signup(t, users.RoleBuyer)

	for i := 0; i < 3; i++ {
		api.createProject(t, buyerToken, api.clock.Now().Add(time.Hour))
	}

	w := api.do(t, http.MethodGet, "/api/v1/projects/overview?category=carpentry&pageSize=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Items []struct {
			IsOpen bool `json:"isOpen"`
		} `json:"items"`
		Total    int `json:"total"`
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	for _, it := range page.Items {
		assert.True(t, it.IsOpen)
	}

	w = api.do(t, http.MethodGet, "/api/v1/projects/overview?category=plumbing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 0, page.Total)
}
