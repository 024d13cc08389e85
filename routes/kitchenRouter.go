package routes

import (
	"go-restaurant-pos/controllers"

	"github.com/gin-gonic/gin"
)

func KitchenRoutes(incomingRoutes *gin.Engine, ctl *controllers.Controller) {
	incomingRoutes.GET("/kitchen/queue", ctl.GetKitchenQueue())
	incomingRoutes.POST("/kitchen/orders/:order_id/advance", ctl.AdvanceOrder())
}
