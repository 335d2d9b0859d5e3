package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// StrictDerivedGuard enables the derived-column guard plugin.
// On by default; set STRICT_DERIVED_GUARD=false only for one-off repair commands.
func StrictDerivedGuard() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_DERIVED_GUARD")))
	return !(v == "0" || v == "false" || v == "no" || v == "n")
}

// DefaultDoubleDyeingCharge is applied to an invoice flagged as double dyeing
// when the request carries no explicit charge.
//
// Set via env:
// - DEFAULT_DOUBLE_DYEING_CHARGE=500
func DefaultDoubleDyeingCharge() decimal.Decimal {
	return decimalFromEnv("DEFAULT_DOUBLE_DYEING_CHARGE", decimal.Zero)
}

func decimalFromEnv(key string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}
