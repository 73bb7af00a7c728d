package middlewares

import (
	"net/http"

	"civicsync-dashboard/session"

	"github.com/gin-gonic/gin"
)

// SessionReader reports the current admin session.
type SessionReader interface {
	Snapshot() session.Snapshot
}

// RequireAdmin rejects requests unless the dashboard session is authenticated.
// Any authenticated identity counts as the admin.
func RequireAdmin(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := sessions.Snapshot()
		if !snap.Authenticated() || snap.Admin == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Admin not authenticated",
				"state": snap.State,
			})
			c.Abort()
			return
		}

		c.Set("admin_uid", snap.Admin.UID)
		c.Next()
	}
}
