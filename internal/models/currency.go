package models

import "github.com/olumayowa/walletcore/internal/errs"

// Currency is the closed set of wallet currencies.
type Currency string

const (
	NGN Currency = "NGN"
	USD Currency = "USD"
)

// ParseCurrency validates a raw currency string against the closed set.
func ParseCurrency(raw string) (Currency, error) {
	switch Currency(raw) {
	case NGN:
		return NGN, nil
	case USD:
		return USD, nil
	default:
		return "", errs.Newf(errs.CodeValidation, "currency must be NGN or USD, got %q", raw)
	}
}
