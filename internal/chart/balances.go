package chart

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/datekey"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// MapBalances maps an instantaneous balance stream (available balance) to chart data.
// Available balance moves both ways with transfers, so decreases are not withdrawals.
// In fiat mode, days without a price are left out rather than shown as zero.
func MapBalances(points []domain.ReconciledPoint, opts Options) domain.ChartData {
	return lo.Reduce(points, func(acc domain.ChartData, p domain.ReconciledPoint, _ int) domain.ChartData {
		if v, ok := opts.value(p.Balance, p.FiatPrice); ok {
			acc.Data.Set(p.Date, v)
		}
		return acc
	}, domain.NewChartData(domain.ChartTypeAvailable))
}

// MapRewardsDailySummary snapshots the end-of-day value of a cumulative stream under
// the back-dated key. The total graph and the CSV export use it so that a
// cumulative curve is never double counted.
func MapRewardsDailySummary(points []domain.ReconciledPoint, opts Options, typ domain.ChartType) domain.ChartData {
	return lo.Reduce(points, func(acc domain.ChartData, p domain.ReconciledPoint, _ int) domain.ChartData {
		if v, ok := opts.value(p.Balance, p.FiatPrice); ok {
			acc.Data.Set(datekey.FromTimeBackOneDay(p.Day), v)
		}
		return acc
	}, domain.NewChartData(typ))
}

// DelegationAcc is the accumulator threaded through FoldDelegation.
type DelegationAcc struct {
	Chart       domain.ChartData
	LastBalance decimal.Decimal
	Started     bool
}

// FoldDelegation returns the fold step used by MapDelegations.
func FoldDelegation(opts Options) func(DelegationAcc, domain.ReconciledPoint, int) DelegationAcc {
	return func(acc DelegationAcc, p domain.ReconciledPoint, _ int) DelegationAcc {
		if v, ok := opts.value(p.Balance, p.FiatPrice); ok {
			acc.Chart.Data.Set(p.Date, v)
		}
		if acc.Started && p.Balance.LessThan(acc.LastBalance) {
			if amount, ok := opts.value(acc.LastBalance.Sub(p.Balance), p.FiatPrice); ok {
				acc.Chart = recordWithdrawal(acc.Chart, p.Date, amount)
			}
		}
		acc.LastBalance = p.Balance
		acc.Started = true
		return acc
	}
}

// MapDelegations maps a staked or unbonding stream. A strict decrease between two
// consecutive days is recorded as a withdrawal on the later day. Unbondings pass
// renderWithdrawals=false so the same economic event is not drawn twice.
func MapDelegations(points []domain.ReconciledPoint, opts Options, renderWithdrawals bool) domain.ChartData {
	acc := lo.Reduce(points, FoldDelegation(opts), DelegationAcc{Chart: domain.NewChartData(domain.ChartTypeStaking)})
	if !renderWithdrawals {
		acc.Chart.Withdrawals = map[string]decimal.Decimal{}
		acc.Chart.WithdrawalEvents = []domain.WithdrawalEvent{}
	}
	return acc.Chart
}
