package chart

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/datekey"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// WithdrawalAcc is the accumulator of the withdrawal detection pass.
type WithdrawalAcc struct {
	Chart       domain.ChartData
	LastBalance decimal.Decimal
	Started     bool
}

// FoldRewardWithdrawals returns the fold step that detects reward withdrawals.
// A decrease is booked under the back-dated key of the day it was observed.
func FoldRewardWithdrawals(opts Options) func(WithdrawalAcc, domain.ReconciledPoint, int) WithdrawalAcc {
	return func(acc WithdrawalAcc, p domain.ReconciledPoint, _ int) WithdrawalAcc {
		if acc.Started && p.Balance.LessThan(acc.LastBalance) {
			if amount, ok := opts.value(acc.LastBalance.Sub(p.Balance), p.FiatPrice); ok {
				acc.Chart = recordWithdrawal(acc.Chart, datekey.FromTimeBackOneDay(p.Day), amount)
			}
		}
		acc.LastBalance = p.Balance
		acc.Started = true
		return acc
	}
}

// CumulativeAcc is the accumulator of the running-total pass.
type CumulativeAcc struct {
	Chart    domain.ChartData
	Total    decimal.Decimal
	Previous decimal.Decimal
}

// FoldCumulativeRewards returns the fold step that rebuilds total earnings.
// Only positive deltas grow the total; a day is emitted only when its delta is non-zero.
func FoldCumulativeRewards(opts Options) func(CumulativeAcc, domain.ReconciledPoint, int) CumulativeAcc {
	return func(acc CumulativeAcc, p domain.ReconciledPoint, _ int) CumulativeAcc {
		delta := p.Balance.Sub(acc.Previous)
		acc.Previous = p.Balance
		if delta.IsZero() {
			return acc
		}
		if delta.IsPositive() {
			acc.Total = acc.Total.Add(delta)
		}
		if v, ok := opts.value(acc.Total, p.FiatPrice); ok {
			acc.Chart.Data.Set(datekey.FromTimeBackOneDay(p.Day), v)
		}
		return acc
	}
}

// MapRewards maps a cumulative reward or commission stream. Withdrawals are detected
// first, then the running total excluding withdrawals is rebuilt so the curve never dips.
func MapRewards(points []domain.ReconciledPoint, opts Options, typ domain.ChartType) domain.ChartData {
	withdrawals := lo.Reduce(points, FoldRewardWithdrawals(opts), WithdrawalAcc{Chart: domain.NewChartData(typ)})
	cumulative := lo.Reduce(points, FoldCumulativeRewards(opts), CumulativeAcc{Chart: domain.NewChartData(typ)})

	out := cumulative.Chart
	out.Withdrawals = withdrawals.Chart.Withdrawals
	out.WithdrawalEvents = withdrawals.Chart.WithdrawalEvents
	return out
}
