package routes

import (
	"go-restaurant-pos/controllers"

	"github.com/gin-gonic/gin"
)

func TableRoutes(incomingRoutes *gin.Engine, ctl *controllers.Controller) {
	incomingRoutes.GET("/tables", ctl.GetTables())
	incomingRoutes.POST("/tables", ctl.CreateTable())
	incomingRoutes.GET("/tables/pending", ctl.PendingReconciliation())
	incomingRoutes.POST("/tables/release-all", ctl.ReleaseAllTables())
	incomingRoutes.GET("/tables/:table_id", ctl.GetTable())
	incomingRoutes.POST("/tables/:table_id/release", ctl.ReleaseTable())
	incomingRoutes.POST("/tables/:table_id/reconcile", ctl.ReconcileTable())
	incomingRoutes.GET("/tables/:table_id/bill", ctl.GetBill())
	incomingRoutes.POST("/tables/:table_id/bill/close", ctl.CloseBill())
}
