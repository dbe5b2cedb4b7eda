package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

var cosmos = domain.Network{Name: "COSMOS", Denom: "ATOM", Descriptor: "cosmoshub", DenominationSize: 1_000_000, SupportsFiatPrices: true}

type mockHistory struct {
	input domain.HistoryInput
	err   error
	asked string
}

func (m *mockHistory) LoadHistory(_ context.Context, address string) (domain.HistoryInput, error) {
	m.asked = address
	return m.input, m.err
}

func fixedService(h HistoryLoader, now time.Time) *Service {
	s := NewService(h)
	s.now = func() time.Time { return now }
	return s
}

func TestBuildForwardFillsAvailableBalance(t *testing.T) {
	input := domain.HistoryInput{
		Address:        "cosmos1xyz",
		BalanceHistory: []domain.Observation{{Balance: "2000000", Timestamp: "2024-01-01"}},
	}
	until := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	charts, err := Build(input, Options{Network: cosmos, Until: until})
	require.NoError(t, err)

	assert.Equal(t, 10, charts.Available.Data.Len())
	for key, v := range charts.Available.Data.All() {
		assert.True(t, v.Equal(decimal.NewFromInt(2)), "%s = %s", key, v)
	}
	v, ok := charts.Available.Data.Get("Jan 01, 2024")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(2)))
	assert.Empty(t, charts.Available.Withdrawals)
	assert.Zero(t, charts.Delegations.Data.Len())
}

func TestBuildThroughToday(t *testing.T) {
	input := domain.HistoryInput{
		BalanceHistory: []domain.Observation{{Balance: "2000000", Timestamp: "2024-01-01"}},
	}

	charts, err := Build(input, Options{Network: cosmos})
	require.NoError(t, err)

	today := time.Now().UTC().Format("Jan 02, 2006")
	v, ok := charts.Available.Data.Get(today)
	require.True(t, ok, "series must run through today")
	assert.True(t, v.Equal(decimal.NewFromInt(2)))
}

func TestBuildEmptyInput(t *testing.T) {
	charts, err := Build(domain.HistoryInput{Address: "a"}, Options{Network: cosmos})
	require.NoError(t, err)

	assert.Equal(t, domain.ChartTypeAvailable, charts.Available.Type)
	assert.Equal(t, domain.ChartTypeCommissions, charts.ValidatorRewards.Type)
	assert.Zero(t, charts.Available.Data.Len())
	assert.NotNil(t, charts.Rewards.Withdrawals)
}

func TestBuildSharedWindow(t *testing.T) {
	input := domain.HistoryInput{
		BalanceHistory: []domain.Observation{{Balance: "1000000", Timestamp: "2024-01-03T10:00:00Z"}},
		Delegations: []domain.Observation{
			{Balance: "5000000", Timestamp: "2024-01-01T00:00:00Z"},
			{Balance: "3000000", Timestamp: "2024-01-04T00:00:00Z"},
		},
	}
	until := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	charts, err := Build(input, Options{Network: cosmos, Until: until})
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan 01, 2024", "Jan 02, 2024", "Jan 03, 2024", "Jan 04, 2024", "Jan 05, 2024"}, charts.Available.Data.Keys())
	assert.True(t, charts.Available.Data.ValueOrZero("Jan 02, 2024").IsZero(), "available starts at zero before its first observation")
	assert.True(t, charts.Available.Data.ValueOrZero("Jan 03, 2024").Equal(decimal.NewFromInt(1)))

	require.Contains(t, charts.Delegations.Withdrawals, "Jan 04, 2024")
	assert.True(t, charts.Delegations.Withdrawals["Jan 04, 2024"].Equal(decimal.NewFromInt(2)))
}

func TestBuildExplicitStartDate(t *testing.T) {
	input := domain.HistoryInput{
		StartDate:      "2024-01-03",
		BalanceHistory: []domain.Observation{{Balance: "1000000", Timestamp: "2024-01-01"}, {Balance: "4000000", Timestamp: "2024-01-02"}},
	}
	until := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	charts, err := Build(input, Options{Network: cosmos, Until: until})
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan 03, 2024", "Jan 04, 2024"}, charts.Available.Data.Keys())
	assert.True(t, charts.Available.Data.ValueOrZero("Jan 03, 2024").Equal(decimal.NewFromInt(4)))
}

func TestBuildFiatDisplay(t *testing.T) {
	input := domain.HistoryInput{
		BalanceHistory:   []domain.Observation{{Balance: "2000000", Timestamp: "2024-01-01"}},
		FiatPriceHistory: []domain.FiatPricePoint{{Timestamp: "2024-01-01T00:00:00Z", Price: 9.5}},
	}
	until := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	charts, err := Build(input, Options{Network: cosmos, DisplayFiat: true, Until: until})
	require.NoError(t, err)

	assert.Equal(t, []string{"Jan 01, 2024"}, charts.Available.Data.Keys())
	assert.True(t, charts.Available.Data.ValueOrZero("Jan 01, 2024").Equal(decimal.NewFromInt(19)))
}

func TestBuildInvalidBalance(t *testing.T) {
	input := domain.HistoryInput{
		DelegatorRewards: []domain.Observation{{Balance: "lots", Timestamp: "2024-01-01"}},
	}
	_, err := Build(input, Options{Network: cosmos, Until: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, domain.ErrInvalidNumberInput)
	assert.ErrorContains(t, err, "delegator rewards")
}

func TestBuildInvalidStartDate(t *testing.T) {
	_, err := Build(domain.HistoryInput{StartDate: "yesterday"}, Options{Network: cosmos})
	assert.Error(t, err)
}

func TestStartDateEarliestAcrossStreams(t *testing.T) {
	input := domain.HistoryInput{
		BalanceHistory:       []domain.Observation{{Timestamp: "2024-02-01T12:00:00Z", Balance: "1"}},
		ValidatorCommissions: []domain.Observation{{Timestamp: "2024-01-15T23:59:00Z", Balance: "1"}},
	}
	start, ok, err := StartDate(input)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
}

func TestReconcile(t *testing.T) {
	now := time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)
	h := &mockHistory{input: domain.HistoryInput{
		BalanceHistory: []domain.Observation{{Balance: "2000000", Timestamp: "2024-01-01"}},
		Delegations:    []domain.Observation{{Balance: "10000000", Timestamp: "2024-01-01"}},
		DelegatorRewards: []domain.Observation{
			{Balance: "100000", Timestamp: "2024-01-02T00:00:05Z"},
			{Balance: "300000", Timestamp: "2024-01-03T00:00:05Z"},
		},
		ValidatorCommissions: []domain.Observation{{Balance: "50000", Timestamp: "2024-01-03T00:00:05Z"}},
	}}

	res, err := fixedService(h, now).Reconcile(context.Background(), "cosmos1xyz", Options{Network: cosmos, FiatCurrency: "USD"})
	require.NoError(t, err)

	assert.Equal(t, "cosmos1xyz", h.asked)
	assert.Equal(t, "cosmos1xyz", res.Input.Address)
	assert.Equal(t, domain.ChartTypeTotal, res.Total.Type)
	assert.Equal(t, 4, res.Total.Data.Len())
	// Jan 02: available 2 + staked 10 + unclaimed rewards 0.3 + commissions 0.05
	assert.True(t, res.Total.Data.ValueOrZero("Jan 02, 2024").Equal(decimal.RequireFromString("12.35")),
		"total = %s", res.Total.Data.ValueOrZero("Jan 02, 2024"))

	require.NotEmpty(t, res.Export.Rows)
	assert.Len(t, res.Export.Rows[0], 16)
	assert.Equal(t, now, res.Export.Args.GeneratedAt)
	assert.Contains(t, res.Export.CSV, "Fiat Currency,USD")
}

func TestReconcileLoaderError(t *testing.T) {
	notFound := errors.New("not found")
	_, err := fixedService(&mockHistory{err: notFound}, time.Now()).Reconcile(context.Background(), "x", Options{})
	assert.ErrorIs(t, err, notFound)
}

func TestReconcileInputWithoutCommissions(t *testing.T) {
	s := fixedService(nil, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	res, err := s.ReconcileInput(domain.HistoryInput{
		Address:          "a",
		DelegatorRewards: []domain.Observation{{Balance: "5", Timestamp: "2024-01-01"}},
	}, Options{Network: domain.Network{Name: "T", DenominationSize: 1}})
	require.NoError(t, err)

	assert.Len(t, res.Export.Rows[0], 11)
	assert.Len(t, res.Export.Rows, 2)
}
