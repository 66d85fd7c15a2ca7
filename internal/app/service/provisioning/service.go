package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/types"

	"go.uber.org/zap"
)

// Result is the outcome of a confirmation attempt. AlreadyProcessed marks the
// losing side of the redirect/webhook race; it carries the winner's
// subscription and is a success for the caller.
type Result struct {
	Subscription     *models.Subscription `json:"subscription"`
	AlreadyProcessed bool                 `json:"already_processed"`
	PortAllocated    bool                 `json:"port_allocated"`
	Port             *models.Port         `json:"port,omitempty"`
	PortMessage      string               `json:"port_message,omitempty"`
}

// Service turns a gateway-confirmed payment into an active subscription and,
// capacity permitting, an allocated port. Both confirmation entrypoints funnel
// into ProcessSuccessfulPayment; the order store's conditional update decides
// the winner.
type Service struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	orders order.Store
	pool   port.Pool
	subs   subscription.Store
	now    func() time.Time
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, orders order.Store, pool port.Pool, subs subscription.Store) Manager {
	return &Service{cfg: cfg, log: log, orders: orders, pool: pool, subs: subs, now: time.Now}
}

// ProcessSuccessfulPayment is idempotent: any number of calls with the same
// order id yields exactly one subscription and at most one claimed port.
func (s *Service) ProcessSuccessfulPayment(ctx context.Context, orderID, gatewayPaymentID string) (*Result, error) {
	log := logctx.FromCtx(ctx, s.log)

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.orders.ConfirmPaid(ctx, orderID, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	paymentConfirmedTotal.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case order.ConfirmNotFound:
		return nil, fmt.Errorf("%w: %s", order.ErrNotFound, orderID)
	case order.ConfirmAlreadyProcessed:
		// the other delivery path won; hand back its subscription untouched
		sub, err := s.winnerSubscription(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("order %s finalized but subscription missing: %w", orderID, err)
		}
		log.Infow("payment_already_processed", "order_id", orderID, "subscription_id", sub.ID)
		return &Result{Subscription: sub, AlreadyProcessed: true, PortAllocated: sub.PortID != nil}, nil
	}

	plan := s.cfg.GetPlanByID(o.PlanID)
	if plan == nil {
		return nil, fmt.Errorf("plan not configured: %s", o.PlanID)
	}

	start := s.now()
	sub := &models.Subscription{
		CustomerID: o.CustomerID,
		PlanID:     o.PlanID,
		OrderID:    o.ID,
		Status:     types.SubscriptionStatusActive,
		StartDate:  start,
		EndDate:    start.AddDate(0, plan.BillingPeriodMonths, 0),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	log.Infow("subscription_created", "order_id", orderID, "subscription_id", sub.ID, "plan_id", sub.PlanID)

	// The order transition is committed; the port claim is a separate atomic
	// step so no writer ever holds locks across both tables.
	res := &Result{Subscription: sub}
	claimed, err := s.pool.ClaimOne(ctx, o.PlanID, sub.ID)
	switch {
	case errors.Is(err, port.ErrNoneAvailable):
		portClaimTotal.WithLabelValues("empty").Inc()
		res.PortMessage = "no port available; allocation will be completed by operations"
		log.Warnw("port_claim_empty", "order_id", orderID, "subscription_id", sub.ID, "plan_id", o.PlanID)
	case err != nil:
		// the purchase stands regardless; surface the degraded outcome
		portClaimTotal.WithLabelValues("error").Inc()
		res.PortMessage = "port allocation deferred"
		log.Errorw("port_claim_error", "order_id", orderID, "subscription_id", sub.ID, "error", err)
	default:
		portClaimTotal.WithLabelValues("claimed").Inc()
		if err := s.subs.SetPort(ctx, sub.ID, claimed.ID); err != nil {
			return nil, err
		}
		sub.PortID = &claimed.ID
		res.Port = claimed
		res.PortAllocated = true
		log.Infow("port_allocated", "subscription_id", sub.ID, "port_id", claimed.ID)
	}

	return res, nil
}

// The order flip and the subscription insert are separate statements, so a
// loser arriving right behind the winner can observe the finalized order
// before the subscription row is visible.
const (
	settleWindow   = 2 * time.Second
	settleInterval = 20 * time.Millisecond
)

// winnerSubscription resolves the subscription the winning path created,
// retrying across the winner's commit window. Absence after the window closes
// is a real inconsistency, not a race.
func (s *Service) winnerSubscription(ctx context.Context, orderID string) (*models.Subscription, error) {
	deadline := time.Now().Add(settleWindow)
	for {
		sub, err := s.subs.GetByOrderID(ctx, orderID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, subscription.ErrNotFound) || time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(settleInterval):
		}
	}
}

// ProcessFailedPayment moves a pending order to failed. A failure notification
// arriving after a success is a no-op; final status never regresses.
func (s *Service) ProcessFailedPayment(ctx context.Context, orderID string) error {
	outcome, err := s.orders.ConfirmFailed(ctx, orderID)
	if err != nil {
		return err
	}
	if outcome == order.ConfirmNotFound {
		return fmt.Errorf("%w: %s", order.ErrNotFound, orderID)
	}
	logctx.FromCtx(ctx, s.log).Infow("payment_failed_recorded", "order_id", orderID, "outcome", outcome)
	return nil
}
