package controllers

import (
	"net/http"

	"go-restaurant-pos/cart"
	"go-restaurant-pos/voice"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type voiceRequest struct {
	Text     string             `json:"text" validate:"required,max=500"`
	Table_id int                `json:"table_id" validate:"omitempty,min=1"`
	Items    []orderLineRequest `json:"items" validate:"omitempty,dive"`
}

type voiceResponse struct {
	Result   voice.Result    `json:"result"`
	Table_id int             `json:"table_id,omitempty"`
	Items    []cart.Line     `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Errors   []string        `json:"errors,omitempty"`
}

// ParseVoice turns a transcript into suggestions and applies them to the cart
// sent by the terminal. Nothing is recorded; the terminal submits the cart.
func (ctl *Controller) ParseVoice() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := ctl.context(c)
		defer cancel()
		var req voiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}
		if err := validate.Struct(req); err != nil {
			ctl.respondError(c, bindError(err))
			return
		}

		products, err := ctl.Catalog.ListActiveProducts(ctx, "")
		if err != nil {
			ctl.respondError(c, err)
			return
		}
		parser := voice.NewParser(products)

		terminalCart := cart.New()
		terminalCart.SelectTable(req.Table_id)
		resp := voiceResponse{}
		for _, line := range req.Items {
			product, err := ctl.Catalog.GetProduct(ctx, line.Product_id)
			if err == nil {
				err = terminalCart.AddItem(product, line.Quantity)
			}
			if err != nil {
				resp.Errors = append(resp.Errors, err.Error())
			}
		}

		resp.Result = parser.Parse(req.Text)
		if err := parser.Apply(resp.Result, terminalCart); err != nil {
			resp.Errors = append(resp.Errors, err.Error())
		}
		resp.Table_id = terminalCart.Table()
		resp.Items = terminalCart.Lines()
		resp.Total = terminalCart.Total()
		c.JSON(http.StatusOK, resp)
	}
}
