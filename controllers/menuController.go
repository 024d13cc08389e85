package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"github.com/gin-gonic/gin"
)

type productRequest struct {
	Name        *string               `json:"name" validate:"omitempty,min=2,max=100"`
	Price       json.RawMessage       `json:"price"`
	Category_id *string               `json:"category_id"`
	Status      *models.ProductStatus `json:"status" validate:"omitempty,eq=active|eq=paused"`
	Description *string               `json:"description"`
}

type statusRequest struct {
	Status models.ProductStatus `json:"status" validate:"required,eq=active|eq=paused"`
}

// apply copies the fields present in the request onto p.
func (r productRequest) apply(p *models.Product) error {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if len(r.Price) > 0 {
		price, err := helpers.PriceFromJSON(r.Price)
		if err != nil {
			return err
		}
		p.Price = price
	}
	if r.Category_id != nil {
		p.Category_id = *r.Category_id
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	return nil
}

func (ctl *Controller) GetProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		filter := models.ProductFilter{Category_id: c.Query("category")}
		switch status := c.DefaultQuery("status", "all"); status {
		case "all":
		case string(models.ProductActive), string(models.ProductPaused):
			filter.Status = models.ProductStatus(status)
		default:
			ctl.respondError(c, models.NewValidationError("status", "status must be active, paused or all"))
			return
		}
		products, err := ctl.Catalog.ListProducts(ctx, filter)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Products fetched successfully", products))
	}
}

func (ctl *Controller) GetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		product, err := ctl.Catalog.GetProduct(ctx, c.Param("product_id"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func (ctl *Controller) CreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if len(req.Price) == 0 {
			ctl.respondError(c, models.NewValidationError("price", "price is required"))
			return
		}
		product := models.Product{Status: models.ProductActive}
		if err := req.apply(&product); err != nil {
			ctl.respondError(c, err)
			return
		}
		if err := validate.Struct(product); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		created, err := ctl.Catalog.CreateProduct(ctx, product)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func (ctl *Controller) UpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if err := validate.Struct(req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		product, err := ctl.Catalog.GetProduct(ctx, c.Param("product_id"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		if err := req.apply(&product); err != nil {
			ctl.respondError(c, err)
			return
		}
		if err := validate.Struct(product); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		updated, err := ctl.Catalog.UpdateProduct(ctx, product)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// SetProductStatus pauses or reactivates a product.
func (ctl *Controller) SetProductStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if err := validate.Struct(req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		product, err := ctl.Catalog.GetProduct(ctx, c.Param("product_id"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		product.Status = req.Status
		updated, err := ctl.Catalog.UpdateProduct(ctx, product)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func (ctl *Controller) GetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		categories, err := ctl.Catalog.ListCategories(ctx)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse("Categories fetched successfully", categories))
	}
}

func (ctl *Controller) CreateCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		var category models.Category
		if err := c.ShouldBindJSON(&category); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if err := validate.Struct(category); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		created, err := ctl.Catalog.CreateCategory(ctx, category)
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}
