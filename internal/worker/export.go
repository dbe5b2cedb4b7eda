package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChorusOne/anthem-sub001/internal/export"
	"github.com/ChorusOne/anthem-sub001/internal/portfolio"
)

const maxConcurrentExports = 4

// Reconciler defines the reconciliation step of an export run.
type Reconciler interface {
	Reconcile(ctx context.Context, address string, opts portfolio.Options) (portfolio.Result, error)
}

// Publisher receives every rendered export.
type Publisher interface {
	Publish(ctx context.Context, doc export.Document) error
}

// AddressLister enumerates known addresses when none are configured explicitly.
type AddressLister interface {
	ListAddresses(ctx context.Context) ([]string, error)
}

// ExportWorker periodically reconciles addresses and publishes their exports.
type ExportWorker struct {
	reconciler Reconciler
	publisher  Publisher
	addresses  []string
	lister     AddressLister // used when addresses is empty
	opts       portfolio.Options
	interval   time.Duration
}

// NewExportWorker creates a new ExportWorker. When addresses is empty every
// address known to lister is exported.
func NewExportWorker(reconciler Reconciler, publisher Publisher, addresses []string, lister AddressLister, opts portfolio.Options, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		reconciler: reconciler,
		publisher:  publisher,
		addresses:  addresses,
		lister:     lister,
		opts:       opts,
		interval:   interval,
	}
}

func (w *ExportWorker) targets(ctx context.Context) ([]string, error) {
	if len(w.addresses) > 0 || w.lister == nil {
		return w.addresses, nil
	}
	addresses, err := w.lister.ListAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return addresses, nil
}

// RunOnce exports every target address. A failing address does not stop the others;
// the returned error joins every failure.
func (w *ExportWorker) RunOnce(ctx context.Context) error {
	addresses, err := w.targets(ctx)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		slog.Warn("ExportWorker: no addresses to export")
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentExports)

	for _, address := range addresses {
		g.Go(func() error {
			if err := w.exportAddress(gctx, address); err != nil {
				slog.Error("ExportWorker: export failed", "address", address, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("ExportWorker: run completed", "addresses", len(addresses), "failed", len(errs))
	return errors.Join(errs...)
}

func (w *ExportWorker) exportAddress(ctx context.Context, address string) error {
	res, err := w.reconciler.Reconcile(ctx, address, w.opts)
	if err != nil {
		return err
	}
	if err := w.publisher.Publish(ctx, res.Export); err != nil {
		return fmt.Errorf("publishing %s: %w", address, err)
	}
	return nil
}

// Run starts the export worker loop. It blocks until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context) {
	slog.Info("ExportWorker: starting", "interval", w.interval)

	// Export immediately on startup
	if err := w.RunOnce(ctx); err != nil {
		slog.Error("ExportWorker: initial run failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ExportWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				slog.Error("ExportWorker: run failed", "error", err)
			}
		}
	}
}
