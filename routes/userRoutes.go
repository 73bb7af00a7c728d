package routes

import (
	"civicsync-dashboard/controllers"
	"civicsync-dashboard/middlewares"

	"github.com/gin-gonic/gin"
)

func UserRoutes(r *gin.Engine, d *controllers.Dashboard) {
	profiles := r.Group("/api/profiles", middlewares.RequireAdmin(d.Sessions))
	{
		profiles.GET("", d.GetProfiles)
	}
}
