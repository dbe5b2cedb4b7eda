package domain

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"github.com/shopspring/decimal"
)

// ChartType identifies which stream a ChartData was built from.
type ChartType string

const (
	ChartTypeTotal       ChartType = "TOTAL"
	ChartTypeAvailable   ChartType = "AVAILABLE"
	ChartTypeRewards     ChartType = "REWARDS"
	ChartTypeStaking     ChartType = "STAKING"
	ChartTypeCommissions ChartType = "COMMISSIONS"
)

// ChartSeries maps date keys to values while remembering insertion order.
// The zero value is an empty series ready to use.
type ChartSeries struct {
	keys   []string
	values map[string]decimal.Decimal
}

// Set stores v under key. Re-setting an existing key keeps its original position.
func (s *ChartSeries) Set(key string, v decimal.Decimal) {
	if s.values == nil {
		s.values = make(map[string]decimal.Decimal)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Get returns the value stored under key.
func (s ChartSeries) Get(key string) (decimal.Decimal, bool) {
	v, ok := s.values[key]
	return v, ok
}

// ValueOrZero returns the value stored under key, or zero when absent.
func (s ChartSeries) ValueOrZero(key string) decimal.Decimal {
	return s.values[key]
}

// Len returns the number of entries.
func (s ChartSeries) Len() int { return len(s.keys) }

// Keys returns the date keys in insertion order.
func (s ChartSeries) Keys() []string { return slices.Clone(s.keys) }

// All iterates over the entries in insertion order.
func (s ChartSeries) All() iter.Seq2[string, decimal.Decimal] {
	return func(yield func(string, decimal.Decimal) bool) {
		for _, k := range s.keys {
			if !yield(k, s.values[k]) {
				return
			}
		}
	}
}

type seriesPoint struct {
	Date  string      `json:"date"`
	Value json.Number `json:"value"`
}

// MarshalJSON encodes the series as an ordered array of {date, value} objects.
func (s ChartSeries) MarshalJSON() ([]byte, error) {
	points := make([]seriesPoint, 0, len(s.keys))
	for k, v := range s.All() {
		points = append(points, seriesPoint{Date: k, Value: json.Number(v.String())})
	}
	return json.Marshal(points)
}

// UnmarshalJSON decodes the array form produced by MarshalJSON.
func (s *ChartSeries) UnmarshalJSON(data []byte) error {
	var points []seriesPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	*s = ChartSeries{}
	for _, p := range points {
		v, err := decimal.NewFromString(p.Value.String())
		if err != nil {
			return fmt.Errorf("%w: %q at %s", ErrInvalidNumberInput, p.Value, p.Date)
		}
		s.Set(p.Date, v)
	}
	return nil
}

// WithdrawalEvent is a detected balance decrease on a given day.
type WithdrawalEvent struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// ChartData is the unit handed to the chart renderer.
type ChartData struct {
	Type             ChartType                  `json:"type"`
	Data             ChartSeries                `json:"data"`
	Withdrawals      map[string]decimal.Decimal `json:"withdrawalsMap"`
	WithdrawalEvents []WithdrawalEvent          `json:"withdrawalEvents"`
}

// NewChartData returns an empty ChartData of the given type.
func NewChartData(t ChartType) ChartData {
	return ChartData{
		Type:             t,
		Withdrawals:      map[string]decimal.Decimal{},
		WithdrawalEvents: []WithdrawalEvent{},
	}
}

// TickIndexes maps each withdrawal event to the position of its date among the series keys.
// Events whose date is not part of the series are skipped.
func (c ChartData) TickIndexes() map[int]decimal.Decimal {
	positions := make(map[string]int, c.Data.Len())
	for i, k := range c.Data.keys {
		positions[k] = i
	}
	out := make(map[int]decimal.Decimal, len(c.WithdrawalEvents))
	for _, e := range c.WithdrawalEvents {
		if i, ok := positions[e.Date]; ok {
			out[i] = e.Amount
		}
	}
	return out
}

// PortfolioHistoryChartData is the full reconciled output for one address.
type PortfolioHistoryChartData struct {
	Available             ChartData `json:"availableChartData"`
	Rewards               ChartData `json:"rewardsChartData"`
	RewardsDailySummary   ChartData `json:"rewardsDailySummary"`
	Delegations           ChartData `json:"delegationsChartData"`
	Unbondings            ChartData `json:"unbondingsChartData"`
	ValidatorRewards      ChartData `json:"validatorRewardsChartData"`
	ValidatorDailySummary ChartData `json:"validatorRewardsDailySummary"`
}
