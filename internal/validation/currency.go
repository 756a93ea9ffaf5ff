package validation

import "fmt"

// supportedCurrencies lists the ISO 4217 codes stores may price in. Kept as a
// whitelist rather than a full ISO table so that payout integrations only ever
// see currencies the platform can actually settle.
var supportedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"JPY": true,
	"SEK": true,
	"NOK": true,
	"DKK": true,
	"CHF": true,
}

// ValidateCurrency checks that a currency code is supported.
func ValidateCurrency(code string) error {
	if !supportedCurrencies[code] {
		return fmt.Errorf("unsupported currency %q", code)
	}
	return nil
}
