package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is a single on-chain snapshot of one balance stream.
// Balance is kept as a string so that micro-unit amounts above 2^53 survive JSON decoding.
type Observation struct {
	Timestamp string `json:"timestamp"`
	Balance   string `json:"balance"`
	Address   string `json:"address,omitempty"`
	Validator string `json:"validator,omitempty"`
	Denom     string `json:"denom,omitempty"`
	Chain     string `json:"chain,omitempty"`
	Height    int64  `json:"height,omitempty"`
}

// FiatPricePoint is one day of the fiat price feed.
type FiatPricePoint struct {
	Timestamp string  `json:"timestamp"`
	Price     float64 `json:"price"`
}

// FiatPriceMap maps a date key to that day's fiat price.
type FiatPriceMap map[string]float64

// Lookup returns the price for a date key, or nil when the feed has no entry for that day.
func (m FiatPriceMap) Lookup(dateKey string) *float64 {
	p, ok := m[dateKey]
	if !ok {
		return nil
	}
	return &p
}

// ReconciledPoint is one calendar day of a gap-filled stream.
// Day is midnight UTC of the day Date names.
type ReconciledPoint struct {
	Day       time.Time       `json:"-"`
	Date      string          `json:"timestamp"`
	Balance   decimal.Decimal `json:"balance"`
	FiatPrice *float64        `json:"fiatPrice,omitempty"`
}

// Network describes the chain an address lives on.
type Network struct {
	Name               string `json:"name"`
	Denom              string `json:"denom"`
	Descriptor         string `json:"descriptor"`
	DenominationSize   int64  `json:"denominationSize"`
	SupportsFiatPrices bool   `json:"supportsFiatPrices"`
}

// HistoryInput bundles every raw stream needed to reconcile one address.
// StartDate is optional; when empty the earliest observation across all streams is used.
type HistoryInput struct {
	Address              string           `json:"address"`
	StartDate            string           `json:"startDate,omitempty"`
	BalanceHistory       []Observation    `json:"balanceHistory"`
	Delegations          []Observation    `json:"delegations"`
	Unbondings           []Observation    `json:"unbondings"`
	DelegatorRewards     []Observation    `json:"delegatorRewards"`
	ValidatorCommissions []Observation    `json:"validatorCommissions"`
	FiatPriceHistory     []FiatPricePoint `json:"fiatPriceHistory"`
}

// IsEmpty reports whether the input carries no observations in any stream.
func (h HistoryInput) IsEmpty() bool {
	return len(h.BalanceHistory) == 0 &&
		len(h.Delegations) == 0 &&
		len(h.Unbondings) == 0 &&
		len(h.DelegatorRewards) == 0 &&
		len(h.ValidatorCommissions) == 0
}
