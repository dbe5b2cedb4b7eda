package portfolio

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/ChorusOne/anthem-sub001/internal/chart"
	"github.com/ChorusOne/anthem-sub001/internal/datekey"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
	"github.com/ChorusOne/anthem-sub001/internal/series"
)

// Options controls one reconciliation pass.
type Options struct {
	DisplayFiat  bool
	Network      domain.Network
	FiatCurrency string
	// Until is the last day of the window. Zero means today (UTC).
	Until time.Time
}

func (o Options) chartOptions() chart.Options {
	return chart.Options{DisplayFiat: o.DisplayFiat, Network: o.Network}
}

func (o Options) until() time.Time {
	if o.Until.IsZero() {
		return time.Now().UTC()
	}
	return o.Until
}

// EmptyCharts returns a bundle with every stream present and empty.
func EmptyCharts() domain.PortfolioHistoryChartData {
	return domain.PortfolioHistoryChartData{
		Available:             domain.NewChartData(domain.ChartTypeAvailable),
		Rewards:               domain.NewChartData(domain.ChartTypeRewards),
		RewardsDailySummary:   domain.NewChartData(domain.ChartTypeRewards),
		Delegations:           domain.NewChartData(domain.ChartTypeStaking),
		Unbondings:            domain.NewChartData(domain.ChartTypeStaking),
		ValidatorRewards:      domain.NewChartData(domain.ChartTypeCommissions),
		ValidatorDailySummary: domain.NewChartData(domain.ChartTypeCommissions),
	}
}

// StartDate returns the first day of the reconciliation window: the input's
// StartDate when set, otherwise the day of the earliest observation in any stream.
// ok is false when there is nothing to reconcile.
func StartDate(input domain.HistoryInput) (start time.Time, ok bool, err error) {
	if input.StartDate != "" {
		t, err := datekey.Parse(input.StartDate)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parsing start date: %w", err)
		}
		return datekey.StartOfDay(t), true, nil
	}

	streams := [][]domain.Observation{
		input.BalanceHistory,
		input.Delegations,
		input.Unbondings,
		input.DelegatorRewards,
		input.ValidatorCommissions,
	}
	for _, obs := range lo.Flatten(streams) {
		t, err := datekey.Parse(obs.Timestamp)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parsing observation timestamp: %w", err)
		}
		if !ok || t.Before(start) {
			start, ok = t, true
		}
	}
	return datekey.StartOfDay(start), ok, nil
}

// Build runs the whole pipeline for one address: price index, gap fill of every
// stream over a shared window, then the per-stream mappers.
func Build(input domain.HistoryInput, opts Options) (domain.PortfolioHistoryChartData, error) {
	start, ok, err := StartDate(input)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}
	if !ok {
		return EmptyCharts(), nil
	}

	prices, err := series.BuildFiatPriceMap(input.FiatPriceHistory)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}

	end := opts.until()
	fill := func(name string, obs []domain.Observation) ([]domain.ReconciledPoint, error) {
		points, err := series.PopulateMissingDatesUntil(start, end, obs, prices)
		if err != nil {
			return nil, fmt.Errorf("reconciling %s: %w", name, err)
		}
		return points, nil
	}

	balances, err := fill("balance history", input.BalanceHistory)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}
	delegations, err := fill("delegations", input.Delegations)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}
	unbondings, err := fill("unbondings", input.Unbondings)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}
	rewards, err := fill("delegator rewards", input.DelegatorRewards)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}
	commissions, err := fill("validator commissions", input.ValidatorCommissions)
	if err != nil {
		return domain.PortfolioHistoryChartData{}, err
	}

	co := opts.chartOptions()
	return domain.PortfolioHistoryChartData{
		Available:             chart.MapBalances(balances, co),
		Rewards:               chart.MapRewards(rewards, co, domain.ChartTypeRewards),
		RewardsDailySummary:   chart.MapRewardsDailySummary(rewards, co, domain.ChartTypeRewards),
		Delegations:           chart.MapDelegations(delegations, co, true),
		Unbondings:            chart.MapDelegations(unbondings, co, false),
		ValidatorRewards:      chart.MapRewards(commissions, co, domain.ChartTypeCommissions),
		ValidatorDailySummary: chart.MapRewardsDailySummary(commissions, co, domain.ChartTypeCommissions),
	}, nil
}
