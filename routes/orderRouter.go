package routes

import (
	"go-restaurant-pos/controllers"

	"github.com/gin-gonic/gin"
)

func OrderRoutes(incomingRoutes *gin.Engine, ctl *controllers.Controller) {
	incomingRoutes.GET("/tables/:table_id/orders", ctl.GetTableOrders())
	incomingRoutes.POST("/tables/:table_id/orders", ctl.CreateOrder())
	incomingRoutes.GET("/orders/recent", ctl.GetRecentOrders())
	incomingRoutes.GET("/orders/:order_id", ctl.GetOrder())
	incomingRoutes.POST("/orders/:order_id/cancel", ctl.CancelOrder())
}
