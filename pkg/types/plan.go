package types

// Plan is read-only reference data describing a sellable subscription plan.
// Plans live in the service config and are never mutated at runtime.
type Plan struct {
	ID                  string `json:"id" mapstructure:"id"`
	Name                string `json:"name" mapstructure:"name"`
	BillingPeriodMonths int    `json:"billing_period_months" mapstructure:"billing_period_months"`
	// PriceMinorUnits is the plan price in the currency's minor units (paise, cents).
	PriceMinorUnits int64  `json:"price_minor_units" mapstructure:"price_minor_units"`
	Currency        string `json:"currency" mapstructure:"currency"`
}
