// Package chart maps gap-filled daily series onto the chart data consumed by the
// dashboard renderer and the exporters.
//
// Every mapper is a single left fold over the reconciled points with an explicit
// accumulator, so intermediate state can be inspected by feeding the fold function directly.
package chart

import (
	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
	"github.com/ChorusOne/anthem-sub001/internal/units"
)

// Options selects the display denomination.
type Options struct {
	DisplayFiat bool
	Network     domain.Network
}

func (o Options) value(raw decimal.Decimal, price *float64) (decimal.Decimal, bool) {
	return units.DisplayValue(raw, price, units.DisplayOptions{DisplayFiat: o.DisplayFiat, Network: o.Network})
}

// recordWithdrawal adds amount to the withdrawals recorded for key.
// Several withdrawals on the same day accumulate into one event.
func recordWithdrawal(c domain.ChartData, key string, amount decimal.Decimal) domain.ChartData {
	if c.Withdrawals == nil {
		c.Withdrawals = map[string]decimal.Decimal{}
	}
	prev, seen := c.Withdrawals[key]
	c.Withdrawals[key] = prev.Add(amount)
	if !seen {
		c.WithdrawalEvents = append(c.WithdrawalEvents, domain.WithdrawalEvent{Date: key, Amount: amount})
		return c
	}
	for i := range c.WithdrawalEvents {
		if c.WithdrawalEvents[i].Date == key {
			c.WithdrawalEvents[i].Amount = c.Withdrawals[key]
		}
	}
	return c
}
