package routes

import (
	"go-restaurant-pos/controllers"

	"github.com/gin-gonic/gin"
)

func DashboardRoutes(incomingRoutes *gin.Engine, ctl *controllers.Controller) {
	incomingRoutes.GET("/dashboard/summary", ctl.GetSummary())
	incomingRoutes.GET("/dashboard/revenue/:startDate/:endDate", ctl.GetRevenueByDate())
}
