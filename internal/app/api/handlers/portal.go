package handlers

import (
	"errors"
	"net/http"

	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/response"

	"github.com/gin-gonic/gin"
)

type subscriptionView struct {
	Subscription *models.Subscription `json:"subscription"`
	Port         *models.Port         `json:"port,omitempty"`
}

// @Summary      Current subscription
// @Description  Returns the caller's active subscription and its port, if allocated.
// @Tags         Portal
// @Produce      json
// @Success      200  {object}  response.APIResponse[handlers.subscriptionView]
// @Router       /api/v1/subscription [get]
func ApiCurrentSubscription(subs subscription.Store, pool port.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := logctx.CustomerID(c.Request.Context())
		sub, err := subs.GetActiveByCustomer(c.Request.Context(), customerID)
		if err != nil {
			if errors.Is(err, subscription.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no active subscription"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		view := subscriptionView{Subscription: sub}
		if sub.PortID != nil {
			if p, err := pool.GetByID(c.Request.Context(), *sub.PortID); err == nil {
				view.Port = p
			}
		}
		c.JSON(http.StatusOK, response.OKT(view))
	}
}

func RegisterPortalRoutes(r gin.IRouter, subs subscription.Store, pool port.Pool) {
	r.GET("/subscription", ApiCurrentSubscription(subs, pool))
}
