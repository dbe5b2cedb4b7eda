// Package units converts between on-chain integer denominations, human-scale
// token amounts and fiat amounts.
package units

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// ToUnit divides a raw denom amount by the denomination size without rounding
// for power-of-ten sizes.
func ToUnit(raw decimal.Decimal, denominationSize int64) decimal.Decimal {
	if denominationSize <= 1 {
		return raw
	}
	return domain.Quotient(raw, decimal.NewFromInt(denominationSize))
}

// ToDenom multiplies a human-scale amount by the denomination size.
func ToDenom(amount decimal.Decimal, denominationSize int64) decimal.Decimal {
	if denominationSize <= 1 {
		return amount
	}
	return amount.Mul(decimal.NewFromInt(denominationSize))
}

// DenomToUnit converts a raw on-chain amount (e.g. micro-units) to human scale.
func DenomToUnit[O domain.Output, N domain.Number](raw N, denominationSize int64) (O, error) {
	d, err := domain.ToDecimal(raw)
	if err != nil {
		return *new(O), err
	}
	return domain.Convert[O](ToUnit(d, denominationSize)), nil
}

// UnitToDenom converts a human-scale amount back to the on-chain denomination.
func UnitToDenom[O domain.Output, N domain.Number](amount N, denominationSize int64) (O, error) {
	d, err := domain.ToDecimal(amount)
	if err != nil {
		return *new(O), err
	}
	return domain.Convert[O](ToDenom(d, denominationSize)), nil
}

// ConvertCryptoToFiat converts a raw denom amount to a fiat amount string.
// A zero price means the network has no fiat support yet and yields "".
func ConvertCryptoToFiat(price float64, raw string, network domain.Network) (string, error) {
	if price == 0 {
		return "", nil
	}
	amount, err := domain.ToDecimal(raw)
	if err != nil {
		return "", fmt.Errorf("converting %s to fiat: %w", network.Denom, err)
	}
	p, err := domain.ToDecimal(price)
	if err != nil {
		return "", fmt.Errorf("converting %s to fiat: %w", network.Denom, err)
	}
	return ToUnit(amount, network.DenominationSize).Mul(p).String(), nil
}

// DisplayOptions controls how raw balances are rendered.
type DisplayOptions struct {
	DisplayFiat bool
	Network     domain.Network
}

// DisplayValue converts a raw balance to display units: human-scale tokens, or
// fiat when DisplayFiat is set. ok is false when fiat is requested but price is nil;
// a missing price is never treated as zero.
func DisplayValue(raw decimal.Decimal, price *float64, opts DisplayOptions) (value decimal.Decimal, ok bool) {
	unit := ToUnit(raw, opts.Network.DenominationSize)
	if !opts.DisplayFiat {
		return unit, true
	}
	if price == nil {
		return decimal.Zero, false
	}
	return unit.Mul(decimal.NewFromFloat(*price)), true
}
