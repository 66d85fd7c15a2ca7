package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type PortStatus string

const (
	PortStatusAvailable PortStatus = "available"
	PortStatusAllocated PortStatus = "allocated"
)
