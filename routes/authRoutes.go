package routes

import (
	"civicsync-dashboard/controllers"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the admin session routes
func AuthRoutes(r *gin.Engine, d *controllers.Dashboard) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", d.LoginAdmin)
		auth.POST("/logout", d.LogoutAdmin)
		auth.GET("/session", d.GetSession)
	}
}
