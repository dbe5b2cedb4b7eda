package export

import (
	"encoding/csv"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ChorusOne/anthem-sub001/internal/datekey"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

const notAvailable = "n/a"

var disclaimer = [][]string{
	{"Disclaimer: figures are reconstructed from daily on-chain snapshots and may differ from custodian records."},
	{"Withdrawals are inferred from balance decreases between consecutive days."},
}

var baseColumns = []string{
	"Date",
	"Exchange Rate",
	"Total Balance",
	"Available Balance",
	"Staked Balance",
	"Unbonding Balance",
	"Unclaimed Rewards",
	"Daily Reward",
	"Accumulated Rewards",
	"Reward Withdrawal",
	"Reward Pool",
}

var commissionColumns = []string{
	"Unclaimed Commissions",
	"Daily Commission",
	"Accumulated Commissions",
	"Commission Withdrawal",
	"Commission Pool",
}

// Args is everything needed to export one reconciled address.
type Args struct {
	Address        string
	Network        domain.Network
	FiatCurrency   string
	Charts         domain.PortfolioHistoryChartData
	Total          domain.ChartData
	Prices         domain.FiatPriceMap
	DisplayFiat    bool
	HasCommissions bool
	GeneratedAt    time.Time
}

// Columns returns the column header row: 11 columns, 16 with commissions.
func Columns(hasCommissions bool) []string {
	cols := slices.Clone(baseColumns)
	if hasCommissions {
		cols = append(cols, commissionColumns...)
	}
	return cols
}

// Preamble returns the header block printed above the table.
func Preamble(args Args) [][]string {
	block := slices.Clone(disclaimer)
	return append(block,
		[]string{"Address", args.Address},
		[]string{"Network", args.Network.Name},
		[]string{"Denomination", args.Network.Denom},
		[]string{"Fiat Currency", lo.Ternary(args.FiatCurrency == "", notAvailable, args.FiatCurrency)},
		[]string{"Generated", args.GeneratedAt.UTC().Format(time.RFC3339)},
	)
}

// Rows returns the column header followed by one row per date of the accumulated rewards series.
// A balance missing from a stream on that date is reported as 0, or as n/a in fiat
// mode where the gap means the day had no price.
func Rows(args Args) [][]string {
	c := args.Charts
	rows := make([][]string, 0, c.Rewards.Data.Len()+1)
	rows = append(rows, Columns(args.HasCommissions))

	cell := func(s domain.ChartSeries, key string) string {
		v, ok := s.Get(key)
		if !ok && args.DisplayFiat {
			return notAvailable
		}
		return v.String()
	}

	var commissions *commissionCursor
	if args.HasCommissions {
		commissions = newCommissionCursor(c)
	}

	previous := decimal.Zero
	withdrawn := decimal.Zero
	for key, accumulated := range c.Rewards.Data.All() {
		withdrawal := ""
		if w, ok := c.Rewards.Withdrawals[key]; ok {
			withdrawal = w.String()
			withdrawn = withdrawn.Add(w)
		}

		row := []string{
			key,
			exchangeRate(args, rewardPriceKey(key)),
			cell(args.Total.Data, key),
			cell(c.Available.Data, key),
			cell(c.Delegations.Data, key),
			cell(c.Unbondings.Data, key),
			cell(c.RewardsDailySummary.Data, key),
			accumulated.Sub(previous).String(),
			accumulated.String(),
			withdrawal,
			accumulated.Sub(withdrawn).String(),
		}
		previous = accumulated

		if commissions != nil {
			f := commissions.at(key)
			if !f.observed {
				f.unclaimed = cell(c.ValidatorDailySummary.Data, key)
			}
			row = append(row, f.columns()...)
		}
		rows = append(rows, row)
	}
	return rows
}

// rewardPriceKey returns the key of the day whose price valued a reward row.
// Reward rows are back-dated by one day, so that is the following day.
func rewardPriceKey(key string) string {
	t, err := datekey.FromDateKey(key)
	if err != nil {
		return key
	}
	return datekey.FromTime(t.Add(datekey.Day))
}

// BuildCSV renders the preamble, a blank separator line and the table.
// Only fields containing a comma (the date key) are quoted.
func BuildCSV(args Args) string {
	records := Preamble(args)
	records = append(records, []string{""})
	records = append(records, Rows(args)...)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	lo.Must0(w.WriteAll(records))
	return sb.String()
}

func exchangeRate(args Args, key string) string {
	if !args.Network.SupportsFiatPrices {
		return notAvailable
	}
	p := args.Prices.Lookup(key)
	if p == nil {
		return notAvailable
	}
	return decimal.NewFromFloat(*p).String()
}

type commissionFields struct {
	unclaimed   string
	daily       string
	accumulated string
	withdrawal  string
	pool        string
	observed    bool
}

var emptyCommissionFields = commissionFields{unclaimed: "0", daily: "0", accumulated: "0", withdrawal: "", pool: "0"}

func (f commissionFields) columns() []string {
	return []string{f.unclaimed, f.daily, f.accumulated, f.withdrawal, f.pool}
}

// validatorCommissionFields precomputes the commission columns for every date of
// the accumulated commissions series.
func validatorCommissionFields(c domain.PortfolioHistoryChartData) map[string]commissionFields {
	out := make(map[string]commissionFields, c.ValidatorRewards.Data.Len())
	previous := decimal.Zero
	withdrawn := decimal.Zero
	for key, accumulated := range c.ValidatorRewards.Data.All() {
		withdrawal := ""
		if w, ok := c.ValidatorRewards.Withdrawals[key]; ok {
			withdrawal = w.String()
			withdrawn = withdrawn.Add(w)
		}
		out[key] = commissionFields{
			unclaimed:   c.ValidatorDailySummary.Data.ValueOrZero(key).String(),
			daily:       accumulated.Sub(previous).String(),
			accumulated: accumulated.String(),
			withdrawal:  withdrawal,
			pool:        accumulated.Sub(withdrawn).String(),
			observed:    true,
		}
		previous = accumulated
	}
	return out
}

// commissionCursor walks the accumulated commissions series alongside the reward
// rows. Rows are visited in ascending date order.
type commissionCursor struct {
	fields map[string]commissionFields
	keys   []string
	next   int
	last   commissionFields
}

func newCommissionCursor(c domain.PortfolioHistoryChartData) *commissionCursor {
	return &commissionCursor{
		fields: validatorCommissionFields(c),
		keys:   c.ValidatorRewards.Data.Keys(),
		last:   emptyCommissionFields,
	}
}

// at returns the commission columns for key. A date with no commission entry carries
// the last accumulated total and pool forward with a zero daily amount.
func (cur *commissionCursor) at(key string) commissionFields {
	day, err := datekey.FromDateKey(key)
	for err == nil && cur.next < len(cur.keys) {
		d, kerr := datekey.FromDateKey(cur.keys[cur.next])
		if kerr != nil || d.After(day) {
			break
		}
		cur.last = cur.fields[cur.keys[cur.next]]
		cur.next++
	}
	if f, ok := cur.fields[key]; ok {
		return f
	}
	return commissionFields{daily: "0", accumulated: cur.last.accumulated, pool: cur.last.pool}
}
