package models

import (
	"time"

	"github.com/portdeck/portdeck/pkg/types"
)

// Port is a finite provisioning slot. An allocated port is owned by exactly
// one subscription; the claim is a single atomic statement so two concurrent
// checkouts can never bind the same row.
type Port struct {
	ID          string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Status      types.PortStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	InstanceURL string           `gorm:"column:instance_url;type:varchar(255);not null" json:"instance_url"`
	// PlanID constrains the port to a plan when set; nil ports serve any plan.
	PlanID                   *string   `gorm:"column:plan_id;type:varchar(64);index" json:"plan_id"`
	AllocatedSubscriptionID  *string   `gorm:"column:allocated_subscription_id;type:uuid" json:"allocated_subscription_id"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (Port) TableName() string { return "port" }
