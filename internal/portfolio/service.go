// Package portfolio reconciles the raw balance history of an address into
// chart data, a total series and an export document.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/ChorusOne/anthem-sub001/internal/chart"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
	"github.com/ChorusOne/anthem-sub001/internal/export"
	"github.com/ChorusOne/anthem-sub001/internal/series"
)

// HistoryLoader defines the subset of the history store used by Service.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, address string) (domain.HistoryInput, error)
}

// Result is the output of one reconciliation pass.
type Result struct {
	Input  domain.HistoryInput
	Charts domain.PortfolioHistoryChartData
	Total  domain.ChartData
	Export export.Document
}

// Service loads history for an address and reconciles it.
type Service struct {
	history HistoryLoader
	now     func() time.Time
}

// NewService creates a new portfolio Service.
func NewService(history HistoryLoader) *Service {
	return &Service{history: history, now: func() time.Time { return time.Now().UTC() }}
}

// Reconcile loads the history of address and runs the full pipeline.
func (s *Service) Reconcile(ctx context.Context, address string, opts Options) (Result, error) {
	input, err := s.history.LoadHistory(ctx, address)
	if err != nil {
		return Result{}, fmt.Errorf("loading history for %s: %w", address, err)
	}
	if input.Address == "" {
		input.Address = address
	}
	return s.ReconcileInput(input, opts)
}

// ReconcileInput runs the full pipeline over an already loaded history document.
func (s *Service) ReconcileInput(input domain.HistoryInput, opts Options) (Result, error) {
	now := s.now()
	if opts.Until.IsZero() {
		opts.Until = now
	}

	charts, err := Build(input, opts)
	if err != nil {
		return Result{}, fmt.Errorf("reconciling %s: %w", input.Address, err)
	}

	prices, err := series.BuildFiatPriceMap(input.FiatPriceHistory)
	if err != nil {
		return Result{}, fmt.Errorf("reconciling %s: %w", input.Address, err)
	}

	total := chart.TotalGraph(charts)

	return Result{
		Input:  input,
		Charts: charts,
		Total:  total,
		Export: export.NewDocument(export.Args{
			Address:        input.Address,
			Network:        opts.Network,
			FiatCurrency:   opts.FiatCurrency,
			Charts:         charts,
			Total:          total,
			Prices:         prices,
			DisplayFiat:    opts.DisplayFiat,
			HasCommissions: len(input.ValidatorCommissions) > 0,
			GeneratedAt:    now,
		}),
	}, nil
}
