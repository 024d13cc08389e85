package controllers

import (
	"net/http"

	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"

	"github.com/gin-gonic/gin"
)

type createTableRequest struct {
	Table_id int    `json:"table_id" validate:"required,min=1"`
	Name     string `json:"name" validate:"required,min=1,max=50"`
}

func (ctl *Controller) GetTables() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tables, err := ctl.Tables.ListTables(ctx)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Tables fetched successfully", tables))
	}
}

func (ctl *Controller) GetTable() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		table, err := ctl.Tables.GetTable(ctx, tableID)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, table)
	}
}

func (ctl *Controller) CreateTable() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		var req createTableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if err := validate.Struct(req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		table, err := ctl.Tables.CreateTable(ctx, models.Table{
			Table_id: req.Table_id,
			Name:     req.Name,
			Status:   models.TableAvailable,
		})
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		ctl.Hub.Publish(notify.TopicTables)
		c.JSON(http.StatusCreated, table)
	}
}

func (ctl *Controller) ReleaseTable() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		released, err := ctl.Engine.ReleaseTable(ctx, tableID)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		table, err := ctl.Tables.GetTable(ctx, tableID)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"released": released, "table": table})
	}
}

// ReleaseAllTables frees every dirty table at once, e.g. at closing time.
func (ctl *Controller) ReleaseAllTables() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		released, err := ctl.Engine.ReleaseAll(ctx)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"released": released})
	}
}

func (ctl *Controller) ReconcileTable() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		tableID, err := tableParam(c)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		table, err := ctl.Engine.Reconcile(ctx, tableID)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, table)
	}
}

func (ctl *Controller) PendingReconciliation() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, listResponse("Tables waiting for reconciliation", ctl.Engine.Pending()))
	}
}
