package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventLogStatus string

const (
	WebhookEventLogStatusReceived     WebhookEventLogStatus = "received"
	WebhookEventLogStatusHandled      WebhookEventLogStatus = "handled"
	WebhookEventLogStatusHandleFailed WebhookEventLogStatus = "handle_failed"
)

// WebhookEventLog records every webhook delivery, including redeliveries and
// rejected payloads, for audit and replay debugging.
type WebhookEventLog struct {
	ID               string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EventType        string                `gorm:"column:event_type;type:varchar(64);not null" json:"event_type"`
	GatewayOrderID   string                `gorm:"column:gateway_order_id;type:varchar(128)" json:"gateway_order_id"`
	GatewayPaymentID string                `gorm:"column:gateway_payment_id;type:varchar(128)" json:"gateway_payment_id"`
	TraceID          string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Payload          datatypes.JSON        `gorm:"column:payload;type:jsonb" json:"payload"`
	Result           *datatypes.JSON       `gorm:"column:result;type:jsonb" json:"result"`
	Status           WebhookEventLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func (WebhookEventLog) TableName() string { return "webhook_event_log" }
