package chart

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// TotalGraph sums the holding streams by date key. The available-balance series is the
// reference axis: dates that appear only in another stream are dropped, and streams
// missing a date contribute zero.
func TotalGraph(b domain.PortfolioHistoryChartData) domain.ChartData {
	streams := []domain.ChartSeries{
		b.Available.Data,
		b.RewardsDailySummary.Data,
		b.Delegations.Data,
		b.Unbondings.Data,
		b.ValidatorDailySummary.Data,
	}

	return lo.Reduce(b.Available.Data.Keys(), func(acc domain.ChartData, key string, _ int) domain.ChartData {
		values := lo.Map(streams, func(s domain.ChartSeries, _ int) decimal.Decimal {
			return s.ValueOrZero(key)
		})
		acc.Data.Set(key, lo.Must(domain.Sum[decimal.Decimal](values...)))
		return acc
	}, domain.NewChartData(domain.ChartTypeTotal))
}
