package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"advisorbooking/internal/identity"
	"advisorbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"

	userKey = "user"
)

// Identity reads the actor forwarded by the upstream identity provider.
// It does not authenticate; requests without a usable identity get 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)
		if err != nil || id <= 0 {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid user identity")
			return
		}
		role, ok := identity.ParseRole(c.GetHeader(HeaderUserRole))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid user role")
			return
		}

		user := identity.UserRef{
			ID:    id,
			Name:  c.GetHeader(HeaderUserName),
			Email: c.GetHeader(HeaderUserEmail),
			Role:  role,
		}
		c.Set(userKey, user)
		c.Set("user_id", id)
		c.Set("role", string(role))
		c.Next()
	}
}

// CurrentUser returns the actor stored by Identity.
func CurrentUser(c *gin.Context) (identity.UserRef, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return identity.UserRef{}, false
	}
	u, ok := v.(identity.UserRef)
	return u, ok
}
