package types

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSuccess   OrderStatus = "success"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Final reports whether the status is terminal. Terminal orders never change
// again except for attaching the gateway payment id at confirmation time.
func (s OrderStatus) Final() bool {
	return s == OrderStatusSuccess || s == OrderStatusFailed || s == OrderStatusCancelled
}

type OrderKind string

const (
	OrderKindPurchase OrderKind = "purchase"
	OrderKindRenewal  OrderKind = "renewal"
)

// BillingSnapshot captures the billing details submitted at checkout.
// Stored on the order as JSON so later invoices are unaffected by profile edits.
type BillingSnapshot struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}
