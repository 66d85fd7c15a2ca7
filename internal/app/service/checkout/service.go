package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/internal/platform/gateway"
	"github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/tool"
	"github.com/portdeck/portdeck/pkg/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ErrValidation marks missing or malformed checkout input. Surfaced to the
// user before any payment starts; nothing is persisted.
var ErrValidation = errors.New("validation error")

// GatewayAPI is the slice of the gateway client checkout needs.
type GatewayAPI interface {
	CreateRemoteOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string, notes map[string]string) (*gateway.RemoteOrder, error)
	KeyID() string
}

type BeginCheckoutRequest struct {
	CustomerID    string                `json:"-"`
	PlanID        string                `json:"plan_id"`
	PaymentMethod string                `json:"payment_method"`
	Billing       types.BillingSnapshot `json:"billing"`
}

type BeginRenewalRequest struct {
	CustomerID     string `json:"-"`
	SubscriptionID string `json:"subscription_id"`
	PaymentMethod  string `json:"payment_method"`
}

// CheckoutResult is what the browser checkout widget needs to collect payment.
type CheckoutResult struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayKeyID     string `json:"gateway_key_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	// PortsAvailable is the advisory capacity snapshot at checkout time. The
	// binding decision happens at claim time, not here.
	PortsAvailable bool `json:"ports_available"`
}

type Manager interface {
	BeginCheckout(ctx context.Context, req *BeginCheckoutRequest) (*CheckoutResult, error)
	BeginRenewal(ctx context.Context, req *BeginRenewalRequest) (*CheckoutResult, error)
	// CheckAvailability is the read-only capacity probe for the plan page.
	CheckAvailability(ctx context.Context, planID string) (*port.Availability, error)
}

type Service struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	gw     GatewayAPI
	orders order.Store
	subs   subscription.Store
	pool   port.Pool
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, gw GatewayAPI, orders order.Store, subs subscription.Store, pool port.Pool) Manager {
	return &Service{cfg: cfg, log: log, gw: gw, orders: orders, subs: subs, pool: pool}
}

// BeginCheckout registers the payment with the gateway and persists a pending
// order. The remote order is created first: a gateway failure leaves no local
// state behind, and abandoning the browser flow afterwards just leaves a
// pending order eligible for expiry cleanup.
func (s *Service) BeginCheckout(ctx context.Context, req *BeginCheckoutRequest) (*CheckoutResult, error) {
	if req == nil || req.CustomerID == "" {
		return nil, fmt.Errorf("%w: missing customer", ErrValidation)
	}
	if req.Billing.Name == "" {
		return nil, fmt.Errorf("%w: missing billing name", ErrValidation)
	}
	plan := s.cfg.GetPlanByID(req.PlanID)
	if plan == nil {
		return nil, fmt.Errorf("%w: unknown plan %q", ErrValidation, req.PlanID)
	}

	avail, err := s.pool.CheckAvailability(ctx, plan.ID)
	if err != nil {
		// advisory only; capacity truth lives in the claim
		logctx.FromCtx(ctx, s.log).Warnw("availability_probe_failed", "plan_id", plan.ID, "error", err)
		avail = &port.Availability{}
	}

	remote, err := s.gw.CreateRemoteOrder(ctx, plan.PriceMinorUnits, plan.Currency, tool.GenerateReceiptID(), map[string]string{
		"customer_id": req.CustomerID,
		"plan_id":     plan.ID,
		"kind":        string(types.OrderKindPurchase),
	})
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:               tool.GenerateUUIDV7(),
		CustomerID:       req.CustomerID,
		PlanID:           plan.ID,
		Kind:             types.OrderKindPurchase,
		Status:           types.OrderStatusPending,
		AmountMinorUnits: plan.PriceMinorUnits,
		Currency:         plan.Currency,
		PaymentMethod:    req.PaymentMethod,
		GatewayOrderID:   remote.ID,
	}
	o.Billing = datatypes.NewJSONType(req.Billing)
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("checkout_started", "order_id", o.ID, "plan_id", plan.ID, "gateway_order_id", remote.ID)

	return &CheckoutResult{
		OrderID:          o.ID,
		GatewayOrderID:   remote.ID,
		GatewayKeyID:     s.gw.KeyID(),
		AmountMinorUnits: o.AmountMinorUnits,
		Currency:         o.Currency,
		PortsAvailable:   avail.Available,
	}, nil
}

// BeginRenewal creates a renewal-kind pending order bound to the customer's
// existing subscription.
func (s *Service) BeginRenewal(ctx context.Context, req *BeginRenewalRequest) (*CheckoutResult, error) {
	if req == nil || req.CustomerID == "" {
		return nil, fmt.Errorf("%w: missing customer", ErrValidation)
	}
	if req.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: missing subscription id", ErrValidation)
	}

	sub, err := s.subs.GetByID(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerID != req.CustomerID {
		return nil, fmt.Errorf("%w: subscription does not belong to customer", ErrValidation)
	}
	plan := s.cfg.GetPlanByID(sub.PlanID)
	if plan == nil {
		return nil, fmt.Errorf("%w: unknown plan %q", ErrValidation, sub.PlanID)
	}

	remote, err := s.gw.CreateRemoteOrder(ctx, plan.PriceMinorUnits, plan.Currency, tool.GenerateReceiptID(), map[string]string{
		"customer_id":     req.CustomerID,
		"plan_id":         plan.ID,
		"kind":            string(types.OrderKindRenewal),
		"subscription_id": sub.ID,
	})
	if err != nil {
		return nil, err
	}

	sid := sub.ID
	o := &models.Order{
		ID:               tool.GenerateUUIDV7(),
		CustomerID:       req.CustomerID,
		PlanID:           plan.ID,
		Kind:             types.OrderKindRenewal,
		Status:           types.OrderStatusPending,
		AmountMinorUnits: plan.PriceMinorUnits,
		Currency:         plan.Currency,
		PaymentMethod:    req.PaymentMethod,
		GatewayOrderID:   remote.ID,
		SubscriptionID:   &sid,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("renewal_checkout_started", "order_id", o.ID, "subscription_id", sub.ID)

	return &CheckoutResult{
		OrderID:          o.ID,
		GatewayOrderID:   remote.ID,
		GatewayKeyID:     s.gw.KeyID(),
		AmountMinorUnits: o.AmountMinorUnits,
		Currency:         o.Currency,
	}, nil
}

func (s *Service) CheckAvailability(ctx context.Context, planID string) (*port.Availability, error) {
	return s.pool.CheckAvailability(ctx, planID)
}

// Module exposes the checkout service via Fx.
var Module = fx.Options(
	fx.Provide(func(c *gateway.Client) GatewayAPI { return c }),
	fx.Provide(NewService),
)
