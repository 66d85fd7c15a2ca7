package models

import (
	"time"

	"github.com/portdeck/portdeck/pkg/types"

	"gorm.io/datatypes"
)

// Order is one purchase attempt tying a customer, plan and amount to a remote
// gateway order. Status transitions are one-way: pending -> success/failed.
// Cancelled is only ever set client-side while the order is still pending.
type Order struct {
	ID         string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CustomerID string            `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	PlanID     string            `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	Kind       types.OrderKind   `gorm:"column:kind;type:varchar(32);not null;default:'purchase'" json:"kind"`
	Status     types.OrderStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// AmountMinorUnits is the charge in the currency's minor units.
	AmountMinorUnits int64  `gorm:"column:amount_minor_units;type:bigint;not null" json:"amount_minor_units"`
	Currency         string `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	PaymentMethod    string `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	// GatewayOrderID is the remote order reference minted at checkout.
	GatewayOrderID string `gorm:"column:gateway_order_id;type:varchar(128);not null;uniqueIndex" json:"gateway_order_id"`
	// GatewayPaymentID is attached exactly once by the winning confirmation path.
	GatewayPaymentID *string `gorm:"column:gateway_payment_id;type:varchar(128)" json:"gateway_payment_id"`
	// SubscriptionID is set on renewal orders only, pointing at the
	// subscription being extended.
	SubscriptionID *string                                  `gorm:"column:subscription_id;type:uuid" json:"subscription_id"`
	Billing        datatypes.JSONType[types.BillingSnapshot] `gorm:"column:billing;type:jsonb" json:"billing"`
	CreatedAt      time.Time                                 `json:"created_at"`
	UpdatedAt      time.Time                                 `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) IsRenewal() bool {
	return o != nil && o.Kind == types.OrderKindRenewal && o.SubscriptionID != nil
}
