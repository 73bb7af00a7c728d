package routes

import (
	"civicsync-dashboard/controllers"
	"civicsync-dashboard/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue table and status routes
func IssueRoutes(r *gin.Engine, d *controllers.Dashboard) {
	requireAdmin := middlewares.RequireAdmin(d.Sessions)

	issues := r.Group("/api/issues", requireAdmin)
	{
		issues.GET("", d.GetIssues)
		issues.GET("/stream", d.StreamIssues)
	}

	issue := r.Group("/api/issue", requireAdmin)
	{
		issue.PUT("/:id/status", d.UpdateIssueStatus)
	}
}
