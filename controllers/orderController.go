package controllers

import (
	"net/http"
	"strconv"

	"go-restaurant-pos/cart"
	"go-restaurant-pos/models"

	"github.com/gin-gonic/gin"
)

type orderLineRequest struct {
	Product_id string `json:"product_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
}

type submitOrderRequest struct {
	Submission_id string             `json:"submission_id" validate:"omitempty,uuid"`
	Items         []orderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder rebuilds the terminal's cart from catalog prices and submits it.
func (ctl *Controller) CreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		var req submitOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if err := validate.Struct(req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}

		cartOrder := cart.New()
		cartOrder.ResumeSubmission(req.Submission_id)
		for _, line := range req.Items {
			product, err := ctl.Catalog.GetProduct(ctx, line.Product_id)
			if err != nil {
				ctl.respondError(c, err)
				return
			}
			if err := cartOrder.AddItem(product, line.Quantity); err != nil {
				ctl.respondError(c, err)
				return
			}
		}

		order, err := cartOrder.Submit(ctx, tableID, ctl.Engine)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func (ctl *Controller) GetTableOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		if _, err := ctl.Tables.GetTable(ctx, tableID); err != nil {
			ctl.respondError(c, err)
			return
		}
		exclude := models.ClosedStatuses
		if c.Query("all") == "true" {
			exclude = nil
		}
		orders, err := ctl.Orders.ListOrdersForTable(ctx, tableID, exclude)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Orders fetched successfully", orders))
	}
}

func (ctl *Controller) GetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		order, err := ctl.Orders.GetOrder(ctx, c.Param("order_id"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func (ctl *Controller) GetRecentOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		limit := 10
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 100 {
				ctl.respondError(c, models.NewValidationError("limit", "limit must be between 1 and 100"))
				return
			}
			limit = n
		}
		orders, err := ctl.Dashboard.RecentOrders(ctx, limit)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Recent orders fetched successfully", orders))
	}
}

func (ctl *Controller) CancelOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		order, cancelled, err := ctl.Engine.CancelOrder(ctx, c.Param("order_id"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": cancelled, "order": order})
	}
}
