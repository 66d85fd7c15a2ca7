package renewal

import (
	"context"
	"fmt"
	"time"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/logctx"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Result reports one renewal confirmation. AlreadyProcessed marks a replayed
// or raced confirmation; it is a success, not a conflict.
type Result struct {
	Subscription     *models.Subscription `json:"subscription"`
	AlreadyProcessed bool                 `json:"already_processed"`
}

// Service extends an existing subscription's validity window using the same
// guarded order transition as first purchases. It never creates subscriptions
// and never touches ports.
type Service struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	orders order.Store
	subs   subscription.Store
	now    func() time.Time
}

// Manager is what the confirmation entrypoints program against for renewals.
type Manager interface {
	ProcessSuccessfulRenewal(ctx context.Context, orderID, gatewayPaymentID string) (*Result, error)
	ProcessFailedRenewal(ctx context.Context, orderID string) error
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, orders order.Store, subs subscription.Store) Manager {
	return &Service{cfg: cfg, log: log, orders: orders, subs: subs, now: time.Now}
}

// ProcessSuccessfulRenewal extends the order's subscription once. The new end
// is anchored at max(currentEnd, now): renewing before expiry stacks onto the
// remaining time, renewing after expiry restarts from now.
func (s *Service) ProcessSuccessfulRenewal(ctx context.Context, orderID, gatewayPaymentID string) (*Result, error) {
	log := logctx.FromCtx(ctx, s.log)

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsRenewal() {
		return nil, fmt.Errorf("order %s is not a renewal order", orderID)
	}

	outcome, err := s.orders.ConfirmPaid(ctx, orderID, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case order.ConfirmNotFound:
		return nil, fmt.Errorf("%w: %s", order.ErrNotFound, orderID)
	case order.ConfirmAlreadyProcessed:
		sub, err := s.extendedSubscription(ctx, *o.SubscriptionID, orderID)
		if err != nil {
			return nil, err
		}
		log.Infow("renewal_already_processed", "order_id", orderID, "subscription_id", sub.ID)
		return &Result{Subscription: sub, AlreadyProcessed: true}, nil
	}

	plan := s.cfg.GetPlanByID(o.PlanID)
	if plan == nil {
		return nil, fmt.Errorf("plan not configured: %s", o.PlanID)
	}

	sub, err := s.subs.GetByID(ctx, *o.SubscriptionID)
	if err != nil {
		return nil, err
	}

	base := sub.EndDate
	if now := s.now(); now.After(base) {
		base = now
	}
	newEnd := base.AddDate(0, plan.BillingPeriodMonths, 0)
	if err := s.subs.Extend(ctx, sub.ID, orderID, newEnd); err != nil {
		return nil, err
	}

	updated, err := s.subs.GetByID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	log.Infow("subscription_renewed", "order_id", orderID, "subscription_id", sub.ID, "end_date", newEnd)
	return &Result{Subscription: updated}, nil
}

// The order flip and the extension are separate statements; a loser arriving
// right behind the winner can see the finalized order while EndDate still
// holds the pre-renewal value.
const (
	settleWindow   = 2 * time.Second
	settleInterval = 20 * time.Millisecond
)

// extendedSubscription returns the subscription once the winner's extension
// for this order is visible. Extend writes LastRenewalOrderID in the same
// statement as EndDate, so the marker matching means the new end date is the
// one being read. A replayed delivery matches immediately; only a loser inside
// the winner's commit window waits. If the window closes without the marker
// the latest row is returned as-is.
func (s *Service) extendedSubscription(ctx context.Context, subscriptionID, orderID string) (*models.Subscription, error) {
	deadline := time.Now().Add(settleWindow)
	for {
		sub, err := s.subs.GetByID(ctx, subscriptionID)
		if err != nil {
			return nil, err
		}
		if sub.LastRenewalOrderID != nil && *sub.LastRenewalOrderID == orderID {
			return sub, nil
		}
		if time.Now().After(deadline) {
			logctx.FromCtx(ctx, s.log).Warnw("renewal_extension_not_visible", "order_id", orderID, "subscription_id", subscriptionID)
			return sub, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(settleInterval):
		}
	}
}

// ProcessFailedRenewal marks the renewal order failed. The subscription keeps
// whatever access it had; a failed renewal never shortens it.
func (s *Service) ProcessFailedRenewal(ctx context.Context, orderID string) error {
	outcome, err := s.orders.ConfirmFailed(ctx, orderID)
	if err != nil {
		return err
	}
	if outcome == order.ConfirmNotFound {
		return fmt.Errorf("%w: %s", order.ErrNotFound, orderID)
	}
	logctx.FromCtx(ctx, s.log).Infow("renewal_failed_recorded", "order_id", orderID, "outcome", outcome)
	return nil
}

// Module exposes the renewal service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
