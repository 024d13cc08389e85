package routes

import (
	"go-restaurant-pos/controllers"

	"github.com/gin-gonic/gin"
)

func MenuRoutes(incomingRoutes *gin.Engine, ctl *controllers.Controller) {
	incomingRoutes.GET("/products", ctl.GetProducts())
	incomingRoutes.GET("/products/:product_id", ctl.GetProduct())
	incomingRoutes.POST("/products", ctl.CreateProduct())
	incomingRoutes.PATCH("/products/:product_id", ctl.UpdateProduct())
	incomingRoutes.PATCH("/products/:product_id/status", ctl.SetProductStatus())
	incomingRoutes.GET("/categories", ctl.GetCategories())
	incomingRoutes.POST("/categories", ctl.CreateCategory())
}
