package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

var generatedAt = time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)

func series(kv ...string) domain.ChartSeries {
	var s domain.ChartSeries
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i], decimal.RequireFromString(kv[i+1]))
	}
	return s
}

func chart(t domain.ChartType, s domain.ChartSeries, withdrawals map[string]string) domain.ChartData {
	c := domain.NewChartData(t)
	c.Data = s
	for k, v := range withdrawals {
		c.Withdrawals[k] = decimal.RequireFromString(v)
		c.WithdrawalEvents = append(c.WithdrawalEvents, domain.WithdrawalEvent{Date: k, Amount: c.Withdrawals[k]})
	}
	return c
}

func testArgs(withCommissions bool) Args {
	charts := domain.PortfolioHistoryChartData{
		Available: chart(domain.ChartTypeAvailable,
			series("Jan 01, 2024", "10", "Jan 02, 2024", "10", "Jan 03, 2024", "10", "Jan 04, 2024", "10"), nil),
		Delegations: chart(domain.ChartTypeStaking,
			series("Jan 01, 2024", "100", "Jan 02, 2024", "100", "Jan 03, 2024", "100", "Jan 04, 2024", "100"), nil),
		Unbondings: domain.NewChartData(domain.ChartTypeStaking),
		Rewards: chart(domain.ChartTypeRewards,
			series("Jan 01, 2024", "1", "Jan 02, 2024", "3", "Jan 03, 2024", "3", "Jan 04, 2024", "4"),
			map[string]string{"Jan 03, 2024": "2"}),
		RewardsDailySummary: chart(domain.ChartTypeRewards,
			series("Jan 01, 2024", "1", "Jan 02, 2024", "3", "Jan 03, 2024", "1", "Jan 04, 2024", "2"), nil),
	}
	if withCommissions {
		charts.ValidatorRewards = chart(domain.ChartTypeCommissions,
			series("Jan 02, 2024", "0.5", "Jan 04, 2024", "1.5"), nil)
		charts.ValidatorDailySummary = chart(domain.ChartTypeCommissions,
			series("Jan 02, 2024", "0.5", "Jan 04, 2024", "1.5"), nil)
	}
	return Args{
		Address:      "cosmos1abc",
		Network:      domain.Network{Name: "COSMOS", Denom: "ATOM", DenominationSize: 1_000_000, SupportsFiatPrices: true},
		FiatCurrency: "USD",
		Charts:       charts,
		Total: chart(domain.ChartTypeTotal,
			series("Jan 01, 2024", "111", "Jan 02, 2024", "113", "Jan 03, 2024", "111", "Jan 04, 2024", "112"), nil),
		Prices:         domain.FiatPriceMap{"Jan 01, 2024": 5.5, "Jan 02, 2024": 6, "Jan 04, 2024": 7.25},
		HasCommissions: withCommissions,
		GeneratedAt:    generatedAt,
	}
}

func TestColumnsCount(t *testing.T) {
	assert.Len(t, Columns(false), 11)
	assert.Len(t, Columns(true), 16)
	assert.Equal(t, "Date", Columns(true)[0])
	assert.Equal(t, "Commission Pool", Columns(true)[15])
}

func TestRowsWithoutCommissions(t *testing.T) {
	rows := Rows(testArgs(false))

	require.Len(t, rows, 5)
	assert.Len(t, rows[0], 11)
	assert.Equal(t, []string{"Jan 01, 2024", "6", "111", "10", "100", "0", "1", "1", "1", "", "1"}, rows[1])
	assert.Equal(t, []string{"Jan 02, 2024", "n/a", "113", "10", "100", "0", "3", "2", "3", "", "3"}, rows[2])
	assert.Equal(t, []string{"Jan 03, 2024", "7.25", "111", "10", "100", "0", "1", "0", "3", "2", "1"}, rows[3])
	assert.Equal(t, []string{"Jan 04, 2024", "n/a", "112", "10", "100", "0", "2", "1", "4", "", "2"}, rows[4])
}

func TestRowsWithCommissions(t *testing.T) {
	rows := Rows(testArgs(true))

	require.Len(t, rows, 5)
	for _, r := range rows {
		assert.Len(t, r, 16)
	}
	assert.Equal(t, []string{"0", "0", "0", "", "0"}, rows[1][11:])
	assert.Equal(t, []string{"0.5", "0.5", "0.5", "", "0.5"}, rows[2][11:])
	assert.Equal(t, []string{"0", "0", "0.5", "", "0.5"}, rows[3][11:])
	assert.Equal(t, []string{"1.5", "1", "1.5", "", "1.5"}, rows[4][11:])
}

func TestRowsCarryCommissionsAcrossQuietDays(t *testing.T) {
	args := testArgs(true)
	args.Charts.ValidatorRewards = chart(domain.ChartTypeCommissions,
		series("Dec 31, 2023", "2", "Jan 02, 2024", "5"),
		map[string]string{"Jan 02, 2024": "1"})
	args.Charts.ValidatorDailySummary = chart(domain.ChartTypeCommissions,
		series("Dec 31, 2023", "2", "Jan 01, 2024", "2", "Jan 02, 2024", "4", "Jan 03, 2024", "4", "Jan 04, 2024", "4"), nil)

	rows := Rows(args)

	require.Len(t, rows, 5)
	assert.Equal(t, []string{"2", "0", "2", "", "2"}, rows[1][11:])
	assert.Equal(t, []string{"4", "3", "5", "1", "4"}, rows[2][11:])
	assert.Equal(t, []string{"4", "0", "5", "", "4"}, rows[3][11:])
	assert.Equal(t, []string{"4", "0", "5", "", "4"}, rows[4][11:])
}

func TestRowsFiatModeWithPriceGap(t *testing.T) {
	// 5 ATOM held throughout; the feed has no price for Jan 02, so every fiat
	// series skips that day.
	args := Args{
		Network:      domain.Network{Name: "COSMOS", Denom: "ATOM", DenominationSize: 1_000_000, SupportsFiatPrices: true},
		FiatCurrency: "USD",
		DisplayFiat:  true,
		Charts: domain.PortfolioHistoryChartData{
			Available:   chart(domain.ChartTypeAvailable, series("Jan 01, 2024", "50", "Jan 03, 2024", "60"), nil),
			Delegations: chart(domain.ChartTypeStaking, series("Jan 01, 2024", "10", "Jan 03, 2024", "12"), nil),
			Unbondings:  domain.NewChartData(domain.ChartTypeStaking),
			Rewards: chart(domain.ChartTypeRewards,
				series("Dec 31, 2023", "10", "Jan 02, 2024", "36"), nil),
			RewardsDailySummary: chart(domain.ChartTypeRewards,
				series("Dec 31, 2023", "10", "Jan 02, 2024", "36"), nil),
		},
		Total:  chart(domain.ChartTypeTotal, series("Jan 01, 2024", "60", "Jan 03, 2024", "108"), nil),
		Prices: domain.FiatPriceMap{"Jan 01, 2024": 10, "Jan 03, 2024": 12},
	}

	rows := Rows(args)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Dec 31, 2023", "10", "n/a", "n/a", "n/a", "n/a", "10", "10", "10", "", "10"}, rows[1])
	assert.Equal(t, []string{"Jan 02, 2024", "12", "n/a", "n/a", "n/a", "n/a", "36", "26", "36", "", "36"}, rows[2])
	for _, r := range rows[1:] {
		assert.NotContains(t, r[2:6], "0", "date %s", r[0])
	}
}

func TestCommissionPoolSubtractsWithdrawals(t *testing.T) {
	c := domain.PortfolioHistoryChartData{
		ValidatorRewards: chart(domain.ChartTypeCommissions,
			series("Jan 01, 2024", "5", "Jan 02, 2024", "5", "Jan 03, 2024", "8"),
			map[string]string{"Jan 02, 2024": "4"}),
	}

	fields := validatorCommissionFields(c)

	assert.Equal(t, commissionFields{unclaimed: "0", daily: "0", accumulated: "5", withdrawal: "4", pool: "1", observed: true}, fields["Jan 02, 2024"])
	assert.Equal(t, commissionFields{unclaimed: "0", daily: "3", accumulated: "8", withdrawal: "", pool: "4", observed: true}, fields["Jan 03, 2024"])
}

func TestExchangeRateUnsupportedNetwork(t *testing.T) {
	args := testArgs(false)
	args.Network.SupportsFiatPrices = false

	for _, r := range Rows(args)[1:] {
		assert.Equal(t, "n/a", r[1], "date %s", r[0])
	}
}

func TestRowsEmptyRewards(t *testing.T) {
	rows := Rows(Args{Network: domain.Network{Name: "X"}})
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 11)
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func headerIndex(records [][]string) int {
	for i, r := range records {
		if len(r) > 0 && r[0] == "Date" {
			return i
		}
	}
	return -1
}

func TestBuildCSVHeaderConditionality(t *testing.T) {
	for _, tc := range []struct {
		name            string
		withCommissions bool
		want            int
	}{
		{"no commissions", false, 11},
		{"with commissions", true, 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			records := readCSV(t, BuildCSV(testArgs(tc.withCommissions)))
			i := headerIndex(records)
			require.GreaterOrEqual(t, i, 0, "no header row")
			assert.Len(t, records[i], tc.want)
			for _, r := range records[i+1:] {
				assert.Len(t, r, tc.want, "data row %v", r)
			}
		})
	}
}

func TestBuildCSVPreamble(t *testing.T) {
	out := BuildCSV(testArgs(false))

	assert.True(t, strings.HasPrefix(out, "Disclaimer:"))
	assert.Contains(t, out, "Address,cosmos1abc\n")
	assert.Contains(t, out, "Network,COSMOS\n")
	assert.Contains(t, out, "Denomination,ATOM\n")
	assert.Contains(t, out, "Fiat Currency,USD\n")
	assert.Contains(t, out, "Generated,2024-01-05T08:30:00Z\n")
	assert.Contains(t, out, "\"Jan 03, 2024\",n/a,111,10,100,0,1,0,3,2,1\n")
}

func TestDocumentBaseName(t *testing.T) {
	doc := NewDocument(testArgs(false))
	assert.Equal(t, "cosmos1abc_2024-01-05", doc.BaseName())

	doc.Args.Address = "  "
	assert.Equal(t, "unknown_2024-01-05", doc.BaseName())

	doc.Args.Address = "a/b c"
	assert.Equal(t, "a_b_c_2024-01-05", doc.BaseName())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	doc := NewDocument(testArgs(true))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, doc))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)

	i := headerIndex(rows)
	require.GreaterOrEqual(t, i, 0)
	assert.Len(t, rows[i], 16)
	assert.Equal(t, "Jan 01, 2024", rows[i+1][0])
	assert.Equal(t, "6", rows[i+1][1])
	assert.Equal(t, "cosmos1abc", rows[2][1])
}

func TestBuildSheetValues(t *testing.T) {
	doc := NewDocument(testArgs(false))

	values, headerRow := buildSheetValues(doc)

	assert.Equal(t, len(Preamble(doc.Args))+1, headerRow)
	assert.Equal(t, "Date", values[headerRow][0])
	assert.Equal(t, "Jan 01, 2024", values[headerRow+1][0])
	assert.Equal(t, 111.0, values[headerRow+1][2])
	assert.Equal(t, "", values[headerRow+1][9], "no withdrawal stays an empty cell")
	assert.Len(t, values, headerRow+len(doc.Rows))
}

func TestTabName(t *testing.T) {
	assert.Equal(t, "Portfolio cosmos1abc", TabName("cosmos1abc"))
	assert.Len(t, TabName(strings.Repeat("x", 200)), 100)
}

func TestRenderTableLimit(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, NewDocument(testArgs(false)), 2)

	out := buf.String()
	assert.Contains(t, out, "cosmos1abc")
	assert.Contains(t, out, "Jan 03, 2024")
	assert.Contains(t, out, "Jan 04, 2024")
	assert.NotContains(t, out, "Jan 01, 2024")
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := NewDocument(testArgs(false))

	sink := DirSink{Dir: dir, Formats: []Format{FormatCSV, FormatXLSX}}
	require.NoError(t, sink.Publish(context.Background(), doc))

	data, err := os.ReadFile(filepath.Join(dir, "cosmos1abc_2024-01-05.csv"))
	require.NoError(t, err)
	assert.Equal(t, doc.CSV, string(data))

	info, err := os.Stat(filepath.Join(dir, "cosmos1abc_2024-01-05.xlsx"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

type recordingSink struct {
	calls int
	err   error
}

func (s *recordingSink) Publish(_ context.Context, _ Document) error {
	s.calls++
	return s.err
}

func TestPublisherContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordingSink{err: boom}
	ok := &recordingSink{}

	p := NewPublisher(failing, nil, ok)
	err := p.Publish(context.Background(), NewDocument(testArgs(false)))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}
