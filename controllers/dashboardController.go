package controllers

import (
	"net/http"
	"time"

	"go-restaurant-pos/models"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) GetSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		summary, err := ctl.Dashboard.Summary(ctx)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// GetRevenueByDate returns daily revenue between two dates, both inclusive.
func (ctl *Controller) GetRevenueByDate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()

		loc := ctl.Location
		if loc == nil {
			loc = time.Local
		}
		startDate, err := time.ParseInLocation("2006-01-02", c.Param("startDate"), loc)
		if err != nil {
			ctl.respondError(c, models.NewValidationError("startDate", "invalid start date format"))
			return
		}
		endDate, err := time.ParseInLocation("2006-01-02", c.Param("endDate"), loc)
		if err != nil {
			ctl.respondError(c, models.NewValidationError("endDate", "invalid end date format"))
			return
		}
		days, err := ctl.Dashboard.Revenue(ctx, startDate, endDate)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Revenue fetched successfully", days))
	}
}
