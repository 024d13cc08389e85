package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) GetKitchenQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tickets, err := ctl.Kitchen.Active(ctx)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Kitchen queue fetched successfully", tickets))
	}
}

func (ctl *Controller) AdvanceOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		order, advanced, err := ctl.Kitchen.Advance(ctx, c.Param("order_id"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"advanced": advanced, "order": order})
	}
}
