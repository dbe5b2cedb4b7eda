// Package series turns sparse on-chain observations into dense daily series.
package series

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/datekey"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// BuildFiatPriceMap folds the daily price feed into a date-keyed lookup.
// Later points for the same day overwrite earlier ones.
func BuildFiatPriceMap(points []domain.FiatPricePoint) (domain.FiatPriceMap, error) {
	prices := make(domain.FiatPriceMap, len(points))
	for _, p := range points {
		key, err := datekey.ToDateKey(p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("indexing fiat price: %w", err)
		}
		prices[key] = p.Price
	}
	return prices, nil
}

// PopulateMissingDates produces one point per calendar day from start through today (UTC),
// forward-filling the last observed balance into days without an observation.
func PopulateMissingDates(start time.Time, observations []domain.Observation, prices domain.FiatPriceMap) ([]domain.ReconciledPoint, error) {
	return PopulateMissingDatesUntil(start, time.Now().UTC(), observations, prices)
}

type dayBalance struct {
	day     time.Time
	balance decimal.Decimal
}

// PopulateMissingDatesUntil is PopulateMissingDates with an explicit last day.
// Observations must be ordered by timestamp; duplicate days keep the last value.
func PopulateMissingDatesUntil(start, end time.Time, observations []domain.Observation, prices domain.FiatPriceMap) ([]domain.ReconciledPoint, error) {
	if len(observations) == 0 {
		return []domain.ReconciledPoint{}, nil
	}

	first := datekey.StartOfDay(start)
	last := datekey.StartOfDay(end)
	if last.Before(first) {
		slog.Warn("gap fill range ends before it starts",
			"start", datekey.FromTime(first), "end", datekey.FromTime(last))
		return []domain.ReconciledPoint{}, nil
	}

	parsed := make([]dayBalance, 0, len(observations))
	byKey := make(map[string]decimal.Decimal, len(observations))
	for _, o := range observations {
		ts, err := datekey.Parse(o.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing observation timestamp: %w", err)
		}
		balance, err := domain.ToDecimal(o.Balance)
		if err != nil {
			return nil, fmt.Errorf("parsing balance at %s: %w", o.Timestamp, err)
		}
		parsed = append(parsed, dayBalance{day: datekey.StartOfDay(ts), balance: balance})
		byKey[datekey.FromTime(ts)] = balance
	}

	current := openingBalance(first, parsed)

	points := make([]domain.ReconciledPoint, 0, datekey.DaysBetween(first, last)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := datekey.FromTime(day)
		if b, ok := byKey[key]; ok {
			current = b
		}
		points = append(points, domain.ReconciledPoint{
			Day:       day,
			Date:      key,
			Balance:   current,
			FiatPrice: prices.Lookup(key),
		})
	}
	return points, nil
}

// openingBalance is zero when the window opens before the first observation,
// otherwise the latest observation on or before the opening day.
func openingBalance(first time.Time, parsed []dayBalance) decimal.Decimal {
	if first.Before(parsed[0].day) {
		return decimal.Zero
	}
	opening := parsed[0].balance
	for _, p := range parsed[1:] {
		if p.day.After(first) {
			break
		}
		opening = p.balance
	}
	return opening
}
