package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go-restaurant-pos/billing"
	"go-restaurant-pos/dashboard"
	"go-restaurant-pos/kitchen"
	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"
	"go-restaurant-pos/store"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Controller holds what the HTTP handlers need. Every handler is built by a
// method returning a gin.HandlerFunc.
type Controller struct {
	Engine    *billing.Engine
	Kitchen   *kitchen.Queue
	Dashboard *dashboard.Aggregator
	Catalog   store.CatalogStore
	Tables    store.TableRegistry
	Orders    store.OrderLedger
	Hub       *notify.Hub
	Log       *slog.Logger
	Timeout   time.Duration
	Location  *time.Location
}

func (ctl *Controller) context(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := ctl.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func listResponse(message string, data any) gin.H {
	return gin.H{
		"status":  http.StatusOK,
		"message": message,
		"data":    data,
	}
}

// respondError maps domain errors onto status codes.
func (ctl *Controller) respondError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		partialErr    *models.PartialCommitError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.Is(err, models.ErrNoActiveOrder):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &partialErr):
		body := gin.H{
			"error":                   "the change was only partly saved",
			"op":                      partialErr.Op,
			"table_id":                partialErr.Table_id,
			"order_ids":               partialErr.Order_ids,
			"reconciliation_required": true,
		}
		if partialErr.Submission_id != "" {
			body["submission_id"] = partialErr.Submission_id
		}
		c.JSON(http.StatusInternalServerError, body)
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "storage did not answer in time"})
	default:
		ctl.Log.ErrorContext(c.Request.Context(), "request_failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func tableParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("table_id"))
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("table_id", "table id must be a positive number")
	}
	return id, nil
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return models.NewValidationError(verrs[0].Field(), "failed on %s", verrs[0].Tag())
	}
	return models.NewValidationError("", "%s", err.Error())
}
