package handlers

import (
	"errors"
	"net/http"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/response"
	"github.com/portdeck/portdeck/pkg/tool"
	"github.com/portdeck/portdeck/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// @Summary      Scan orders
// @Description  Filterable, paginated order scan for back-office tooling.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body order.ScanOrdersRequest true "scan request"
// @Success      200 {object} response.APIResponse[order.ScanOrdersResponse]
// @Router       /api/v1/admin/order/list [post]
func ApiAdminScanOrders(orders order.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.ScanOrdersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := orders.Scan(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// portView flattens the nullable columns for back-office consumption.
type portView struct {
	ID                      string           `json:"id"`
	Status                  types.PortStatus `json:"status"`
	InstanceURL             string           `json:"instance_url"`
	PlanID                  string           `json:"plan_id"`
	AllocatedSubscriptionID string           `json:"allocated_subscription_id"`
}

type scanPortsView struct {
	Items []portView `json:"items"`
	Total int64      `json:"total"`
}

// @Summary      Scan ports
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body port.ScanPortsRequest true "scan request"
// @Success      200 {object} response.APIResponse[handlers.scanPortsView]
// @Router       /api/v1/admin/port/list [post]
func ApiAdminScanPorts(pool port.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req port.ScanPortsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := pool.Scan(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		view := scanPortsView{
			Total: res.Total,
			Items: lo.Map(res.Items, func(p *models.Port, _ int) portView {
				return portView{
					ID:                      p.ID,
					Status:                  p.Status,
					InstanceURL:             p.InstanceURL,
					PlanID:                  lo.FromPtr(p.PlanID),
					AllocatedSubscriptionID: lo.FromPtr(p.AllocatedSubscriptionID),
				}
			}),
		}
		c.JSON(http.StatusOK, response.OKT(view))
	}
}

type addPortRequest struct {
	InstanceURL string `json:"instance_url" binding:"required"`
	PlanID      string `json:"plan_id"`
}

// @Summary      Add a port to the pool
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.addPortRequest true "port to add"
// @Success      200 {object} response.APIResponse[models.Port]
// @Router       /api/v1/admin/port [post]
func ApiAdminAddPort(log *zap.SugaredLogger, pool port.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addPortRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		p := &models.Port{
			ID:          tool.GenerateUUIDV7(),
			Status:      types.PortStatusAvailable,
			InstanceURL: req.InstanceURL,
			PlanID:      lo.EmptyableToPtr(req.PlanID),
		}
		if err := pool.Add(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		logctx.FromGin(c, log).Infow("admin_port_added", "port_id", p.ID, "plan_id", req.PlanID)
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

type releasePortRequest struct {
	PortID string `json:"port_id" binding:"required"`
}

// @Summary      Release a port back to the pool
// @Description  Clears the subscription binding. Releasing an already-available port is a no-op.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.releasePortRequest true "port to release"
// @Success      200 {object} response.APIResponse[string]
// @Router       /api/v1/admin/port/release [post]
func ApiAdminReleasePort(log *zap.SugaredLogger, pool port.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req releasePortRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if _, err := pool.GetByID(c.Request.Context(), req.PortID); err != nil {
			if errors.Is(err, port.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "port not found"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if err := pool.Release(c.Request.Context(), req.PortID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		logctx.FromGin(c, log).Infow("admin_port_released", "port_id", req.PortID)
		c.JSON(http.StatusOK, response.OKT("ok"))
	}
}

func RegisterAdminRoutes(r gin.IRouter, log *zap.SugaredLogger, orders order.Store, pool port.Pool) {
	r.POST("/order/list", ApiAdminScanOrders(orders))
	r.POST("/port/list", ApiAdminScanPorts(pool))
	r.POST("/port", ApiAdminAddPort(log, pool))
	r.POST("/port/release", ApiAdminReleasePort(log, pool))
}
