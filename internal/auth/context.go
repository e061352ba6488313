package auth

import (
	"github.com/bidcraft/backend/internal/users"
	"github.com/gin-gonic/gin"
)

const ctxPrincipal = "principal"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID     string
	Email  string
	Role   users.Role
	Status users.Status
}

func setPrincipal(c *gin.Context, p Principal) {
	c.Set(ctxPrincipal, p)
}

// CurrentPrincipal returns the principal stored by the auth middleware. The
// second return is false on unauthenticated requests.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
