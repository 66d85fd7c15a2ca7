package handlers

import (
	"errors"
	"net/http"

	"github.com/portdeck/portdeck/internal/app/service/checkout"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/platform/gateway"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      Begin checkout
// @Description  Validates the request, registers the payment with the gateway and creates a pending order.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.BeginCheckoutRequest true "Checkout request"
// @Success      200  {object}  response.APIResponse[checkout.CheckoutResult]
// @Router       /api/v1/checkout [post]
func ApiBeginCheckout(mgr checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.BeginCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		req.CustomerID = logctx.CustomerID(c.Request.Context())

		res, err := mgr.BeginCheckout(c.Request.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrValidation):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, gateway.ErrGateway):
				// user sees a retry option; nothing was persisted
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, "payment gateway unavailable, please retry"))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Begin renewal checkout
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.BeginRenewalRequest true "Renewal request"
// @Success      200  {object}  response.APIResponse[checkout.CheckoutResult]
// @Router       /api/v1/checkout/renew [post]
func ApiBeginRenewal(mgr checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.BeginRenewalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		req.CustomerID = logctx.CustomerID(c.Request.Context())

		res, err := mgr.BeginRenewal(c.Request.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrValidation), errors.Is(err, subscription.ErrNotFound):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, gateway.ErrGateway):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, "payment gateway unavailable, please retry"))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Check port availability
// @Description  Best-effort capacity probe. Reserves nothing; the answer can be stale by claim time.
// @Tags         Checkout
// @Produce      json
// @Param        plan_id query string false "Plan to check affinity-scoped capacity for"
// @Success      200  {object}  response.APIResponse[port.Availability]
// @Router       /api/v1/availability [get]
func ApiCheckAvailability(mgr checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		avail, err := mgr.CheckAvailability(c.Request.Context(), c.Query("plan_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(avail))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, mgr checkout.Manager) {
	r.POST("/checkout", ApiBeginCheckout(mgr))
	r.POST("/checkout/renew", ApiBeginRenewal(mgr))
}
