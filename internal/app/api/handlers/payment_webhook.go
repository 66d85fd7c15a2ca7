package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/provisioning"
	"github.com/portdeck/portdeck/internal/app/service/renewal"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const webhookSignatureHeader = "X-Gateway-Signature"

// webhookEnvelope mirrors the gateway's event shape. Only the fields the
// handler dispatches on are decoded.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// webhookEventLogger is satisfied by the webhooklog service.
type webhookEventLogger interface {
	Save(ctx context.Context, entry *models.WebhookEventLog)
}

// @Summary      Payment gateway webhook
// @Description  Server-side confirmation leg. The raw body signature is verified before any decoding; duplicate and unknown events are acknowledged with 200 so the gateway stops retrying.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        X-Gateway-Signature header string true "HMAC signature over the raw body"
// @Success      200 {object} response.APIResponse[string]
// @Failure      401 {object} response.APIResponse[any]
// @Router       /api/v1/payment/webhook [post]
func ApiPaymentWebhook(log *zap.SugaredLogger, verifier SignatureVerifier, orders order.Store, prov provisioning.Manager, renew renewal.Manager, events webhookEventLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawBody, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		// verify over the raw bytes before touching the JSON
		if !verifier.VerifyWebhookSignature(rawBody, c.GetHeader(webhookSignatureHeader)) {
			logctx.FromGin(c, log).Warnw("webhook_signature_mismatch")
			c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid signature"))
			return
		}

		var env webhookEnvelope
		if err := json.Unmarshal(rawBody, &env); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "malformed payload"))
			return
		}

		entry := &models.WebhookEventLog{
			EventType:        env.Event,
			GatewayOrderID:   env.Payload.Payment.Entity.OrderID,
			GatewayPaymentID: env.Payload.Payment.Entity.ID,
			Status:           models.WebhookEventLogStatusReceived,
			Payload:          datatypes.JSON(rawBody),
		}
		if tid, ok := c.Value(logctx.KeyTraceID).(string); ok {
			entry.TraceID = tid
		}

		status := handleWebhookEvent(c.Request.Context(), log, orders, prov, renew, &env, entry)
		events.Save(c.Request.Context(), entry)

		if status == http.StatusOK {
			c.JSON(http.StatusOK, response.OKT("ok"))
			return
		}
		c.JSON(status, response.ErrorT[any](response.APIResponseCodeError, "processing failed"))
	}
}

// handleWebhookEvent runs the dispatch and records the outcome on entry.
// It returns the HTTP status the gateway should see: 200 acknowledges the
// event (including redeliveries and unknown orders), 500 asks for a retry.
func handleWebhookEvent(ctx context.Context, log *zap.SugaredLogger, orders order.Store, prov provisioning.Manager, renew renewal.Manager, env *webhookEnvelope, entry *models.WebhookEventLog) int {
	l := logctx.FromCtx(ctx, log)

	switch env.Event {
	case "payment.authorized", "payment.captured", "payment.failed":
	default:
		// unrecognized events are acknowledged so the gateway does not retry
		entry.Status = models.WebhookEventLogStatusHandled
		l.Infow("webhook_event_ignored", "event", env.Event)
		return http.StatusOK
	}

	gatewayOrderID := env.Payload.Payment.Entity.OrderID
	gatewayPaymentID := env.Payload.Payment.Entity.ID

	o, err := orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			entry.Status = models.WebhookEventLogStatusHandled
			l.Warnw("webhook_unknown_order", "gateway_order_id", gatewayOrderID)
			return http.StatusOK
		}
		markFailed(entry, err)
		return http.StatusInternalServerError
	}

	if env.Event == "payment.failed" {
		if o.IsRenewal() {
			err = renew.ProcessFailedRenewal(ctx, o.ID)
		} else {
			err = prov.ProcessFailedPayment(ctx, o.ID)
		}
	} else {
		if o.IsRenewal() {
			_, err = renew.ProcessSuccessfulRenewal(ctx, o.ID, gatewayPaymentID)
		} else {
			_, err = prov.ProcessSuccessfulPayment(ctx, o.ID, gatewayPaymentID)
		}
	}
	if err != nil {
		markFailed(entry, err)
		l.Errorw("webhook_process_error", "order_id", o.ID, "event", env.Event, "error", err)
		return http.StatusInternalServerError
	}

	entry.Status = models.WebhookEventLogStatusHandled
	l.Infow("webhook_handled", "order_id", o.ID, "event", env.Event)
	return http.StatusOK
}

func markFailed(entry *models.WebhookEventLog, err error) {
	entry.Status = models.WebhookEventLogStatusHandleFailed
	res, _ := json.Marshal(map[string]string{"error": err.Error()})
	j := datatypes.JSON(res)
	entry.Result = &j
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, log *zap.SugaredLogger, verifier SignatureVerifier, orders order.Store, prov provisioning.Manager, renew renewal.Manager, events webhookEventLogger) {
	r.POST("/payment/webhook", ApiPaymentWebhook(log, verifier, orders, prov, renew, events))
}
