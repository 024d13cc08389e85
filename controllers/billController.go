package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) GetBill() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		bill, err := ctl.Engine.PreviewBill(ctx, tableID)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func (ctl *Controller) CloseBill() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		bill, err := ctl.Engine.CloseBill(ctx, tableID)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}
