package handlers

import (
	"net/http"
	"net/url"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/provisioning"
	"github.com/portdeck/portdeck/internal/app/service/renewal"
	cfgpkg "github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/logctx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignatureVerifier is the slice of the gateway client the confirmation
// entrypoints need.
type SignatureVerifier interface {
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool
}

// @Summary      Payment redirect callback
// @Description  Browser-side confirmation leg. Verifies the gateway signature, finalizes the order and redirects to the success or failure view.
// @Tags         Payment
// @Param        gateway_order_id   query string true "Gateway order id"
// @Param        gateway_payment_id query string true "Gateway payment id"
// @Param        gateway_signature  query string true "Gateway signature"
// @Success      302
// @Router       /payment/callback [get]
func ApiPaymentCallback(cfg *cfgpkg.Config, log *zap.SugaredLogger, verifier SignatureVerifier, orders order.Store, prov provisioning.Manager, renew renewal.Manager) gin.HandlerFunc {
	failure := func(c *gin.Context, reason string) {
		logctx.FromGin(c, log).Warnw("payment_callback_rejected", "reason", reason)
		c.Redirect(http.StatusFound, cfg.Checkout.FailureURL)
	}

	return func(c *gin.Context) {
		gatewayOrderID := c.Query("gateway_order_id")
		gatewayPaymentID := c.Query("gateway_payment_id")
		signature := c.Query("gateway_signature")
		if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
			failure(c, "missing parameters")
			return
		}

		// signature gates everything; nothing is mutated on a mismatch
		if !verifier.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature) {
			failure(c, "signature mismatch")
			return
		}

		o, err := orders.GetByGatewayOrderID(c.Request.Context(), gatewayOrderID)
		if err != nil {
			failure(c, "order not found")
			return
		}

		if o.IsRenewal() {
			_, err = renew.ProcessSuccessfulRenewal(c.Request.Context(), o.ID, gatewayPaymentID)
		} else {
			_, err = prov.ProcessSuccessfulPayment(c.Request.Context(), o.ID, gatewayPaymentID)
		}
		if err != nil {
			logctx.FromGin(c, log).Errorw("payment_callback_process_error", "order_id", o.ID, "error", err)
			c.Redirect(http.StatusFound, cfg.Checkout.FailureURL)
			return
		}

		logctx.FromGin(c, log).Infow("payment_callback_confirmed", "order_id", o.ID, "gateway_payment_id", gatewayPaymentID)
		c.Redirect(http.StatusFound, cfg.Checkout.SuccessURL+"?payment_id="+url.QueryEscape(gatewayPaymentID))
	}
}

func RegisterPaymentCallbackRoutes(r gin.IRouter, cfg *cfgpkg.Config, log *zap.SugaredLogger, verifier SignatureVerifier, orders order.Store, prov provisioning.Manager, renew renewal.Manager) {
	r.GET("/payment/callback", ApiPaymentCallback(cfg, log, verifier, orders, prov, renew))
}
