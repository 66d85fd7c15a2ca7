package models

import (
	"time"

	"github.com/portdeck/portdeck/pkg/types"
)

// Subscription grants a customer access to a plan for a billing period.
// Exactly one subscription exists per successfully paid purchase order; the
// unique index on order_id enforces that at the storage layer. Renewals extend
// EndDate on the existing row, they never create a second subscription.
type Subscription struct {
	ID         string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CustomerID string                   `gorm:"column:customer_id;type:varchar(64);not null;index" json:"customer_id"`
	PlanID     string                   `gorm:"column:plan_id;type:varchar(64);not null" json:"plan_id"`
	OrderID    string                   `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"order_id"`
	Status     types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	StartDate  time.Time                `gorm:"column:start_date;not null" json:"start_date"`
	EndDate    time.Time                `gorm:"column:end_date;not null" json:"end_date"`
	// PortID is nil when the pool was empty at provisioning time; operations
	// staff allocate one later.
	PortID *string `gorm:"column:port_id;type:uuid" json:"port_id"`
	// LastRenewalOrderID is written in the same statement as the EndDate move.
	// A reader that sees a renewal order finalized but a different marker here
	// is looking at the row before the winner's extension landed.
	LastRenewalOrderID *string   `gorm:"column:last_renewal_order_id;type:uuid" json:"last_renewal_order_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscription" }

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.EndDate.After(time.Now())
}
