package app

import (
	"net/http"
	"time"

	"go-restaurant-pos/controllers"
	"go-restaurant-pos/middleware"
	"go-restaurant-pos/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (a *App) Controller() *controllers.Controller {
	return &controllers.Controller{
		Engine:    a.Engine,
		Kitchen:   a.Kitchen,
		Dashboard: a.Dashboard,
		Catalog:   a.Backend.Catalog,
		Tables:    a.Backend.Tables,
		Orders:    a.Backend.Orders,
		Hub:       a.Hub,
		Log:       a.Log,
		Timeout:   a.Config.RequestTimeout,
		Location:  a.Location,
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(a.Log.With("component", "http")))

	router.Use(cors.New(corsConfig(a.Config.CORSOrigins)))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Page not found"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "pending_reconciliation": len(a.Engine.Pending())})
	})

	ctl := a.Controller()
	routes.TableRoutes(router, ctl)
	routes.OrderRoutes(router, ctl)
	routes.KitchenRoutes(router, ctl)
	routes.MenuRoutes(router, ctl)
	routes.DashboardRoutes(router, ctl)
	routes.VoiceRoutes(router, ctl)
	routes.SocketRoutes(router, ctl)
	return router
}

// corsConfig allows the configured frontends. "*" or an empty list opens the
// API to any origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"POST", "GET", "PATCH", "DELETE", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
