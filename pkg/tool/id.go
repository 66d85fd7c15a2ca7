package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateReceiptID mints a gateway receipt reference. Gateways cap receipts at
// 40 characters, so use the 32 hex chars of a v7 UUID under a short prefix.
func GenerateReceiptID() string {
	return "rcpt_" + strings.ReplaceAll(GenerateUUIDV7(), "-", "")
}
