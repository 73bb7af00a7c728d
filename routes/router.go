package routes

import (
	"context"
	"net"
	"net/http"

	"civicsync-dashboard/controllers"
	"civicsync-dashboard/middlewares"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the dashboard API engine
func NewRouter(d *controllers.Dashboard, corsOrigins []string) *gin.Engine {
	r := gin.Default()
	r.Use(middlewares.CORS(corsOrigins))

	AuthRoutes(r, d)
	IssueRoutes(r, d)
	UserRoutes(r, d)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return r
}

// NewServer wraps handler in an http.Server whose request contexts end with
// ctx, so open event streams finish before Shutdown waits on them.
func NewServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
