package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/ChorusOne/anthem-sub001/internal/config"
	"github.com/ChorusOne/anthem-sub001/internal/database"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
	"github.com/ChorusOne/anthem-sub001/internal/export"
	"github.com/ChorusOne/anthem-sub001/internal/history"
	"github.com/ChorusOne/anthem-sub001/internal/portfolio"
	"github.com/ChorusOne/anthem-sub001/internal/worker"
)

func setupLogging(c *cli.Context) error {
	if c.Bool("verbose") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	return nil
}

// openRepository returns the Postgres store when DATABASE_URL is set and the
// JSON directory store otherwise. The returned func releases resources.
func openRepository(ctx context.Context, cfg config.Config) (history.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Debug("DATABASE_URL not set, using history directory", "dir", cfg.HistoryDir)
		return history.NewDirRepository(cfg.HistoryDir), func() {}, nil
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return history.NewPgRepository(pool, cfg.FiatCurrency), pool.Close, nil
}

func options(c *cli.Context, cfg config.Config) portfolio.Options {
	return portfolio.Options{
		DisplayFiat:  cfg.DisplayFiat || c.Bool("fiat"),
		Network:      cfg.Network,
		FiatCurrency: cfg.FiatCurrency,
	}
}

// reconcile runs the pipeline for the --input file or the --address in the store.
func reconcile(c *cli.Context, cfg config.Config) (portfolio.Result, error) {
	input, address := c.String("input"), c.String("address")
	opts := options(c, cfg)

	switch {
	case input != "":
		doc, err := history.LoadFile(input)
		if err != nil {
			return portfolio.Result{}, err
		}
		if address != "" {
			doc.Address = address
		}
		return portfolio.NewService(nil).ReconcileInput(doc, opts)
	case address != "":
		repo, closeRepo, err := openRepository(c.Context, cfg)
		if err != nil {
			return portfolio.Result{}, err
		}
		defer closeRepo()
		return portfolio.NewService(repo).Reconcile(c.Context, address, opts)
	}
	return portfolio.Result{}, errors.New("either --input or --address is required")
}

func runMigrate(c *cli.Context) error {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return migrate(c.Context, pool)
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := database.RunMigrations(ctx, pool, database.Migrations()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func runImport(c *cli.Context) error {
	cfg := config.Load()

	doc, err := history.LoadFile(c.String("input"))
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if err := repo.SaveHistory(c.Context, doc); err != nil {
		return err
	}
	slog.Info("history imported", "address", doc.Address,
		"balances", len(doc.BalanceHistory),
		"delegations", len(doc.Delegations),
		"unbondings", len(doc.Unbondings),
		"rewards", len(doc.DelegatorRewards),
		"commissions", len(doc.ValidatorCommissions),
		"prices", len(doc.FiatPriceHistory))
	return nil
}

type chartOutput struct {
	Address string                           `json:"address"`
	Charts  domain.PortfolioHistoryChartData `json:"charts"`
	Total   domain.ChartData                 `json:"totalChartData"`
}

func runChart(c *cli.Context) error {
	res, err := reconcile(c, config.Load())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(chartOutput{Address: res.Input.Address, Charts: res.Charts, Total: res.Total})
}

func runExport(c *cli.Context) error {
	cfg := config.Load()

	format, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	res, err := reconcile(c, cfg)
	if err != nil {
		return err
	}
	doc := res.Export

	switch out := c.String("out"); {
	case out != "":
		if err := export.WriteFile(out, format, doc); err != nil {
			return err
		}
		slog.Info("export written", "path", out)
	case format == export.FormatCSV:
		if _, err := fmt.Fprint(c.App.Writer, doc.CSV); err != nil {
			return err
		}
	default:
		return errors.New("--out is required for xlsx exports")
	}

	var sinks []export.Sink
	if c.Bool("upload") {
		u, err := newUploader(c.Context, cfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, u)
	}
	if c.Bool("sheet") {
		s, err := newSheetsWriter(c.Context, cfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, s)
	}
	return export.NewPublisher(sinks...).Publish(c.Context, doc)
}

func runPreview(c *cli.Context) error {
	res, err := reconcile(c, config.Load())
	if err != nil {
		return err
	}
	export.RenderTable(c.App.Writer, res.Export, c.Int("limit"))
	return nil
}

func runWatch(c *cli.Context) error {
	cfg := config.Load()

	var repo history.Repository = history.NewDirRepository(cfg.HistoryDir)
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(c.Context, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrate(c.Context, pool); err != nil {
			return err
		}
		repo = history.NewPgRepository(pool, cfg.FiatCurrency)
	}

	sinks := []export.Sink{export.DirSink{Dir: cfg.ExportDir, Formats: []export.Format{export.FormatCSV, export.FormatXLSX}}}
	if cfg.MinIOEnabled() {
		u, err := newUploader(c.Context, cfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, u)
	}
	if cfg.SheetsEnabled() {
		s, err := newSheetsWriter(c.Context, cfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, s)
	}

	w := worker.NewExportWorker(
		portfolio.NewService(repo),
		export.NewPublisher(sinks...),
		cfg.ExportAddresses,
		repo,
		portfolio.Options{DisplayFiat: cfg.DisplayFiat, Network: cfg.Network, FiatCurrency: cfg.FiatCurrency},
		cfg.ExportInterval,
	)
	w.Run(c.Context)

	log.Println("Shutdown complete")
	return nil
}

func newUploader(ctx context.Context, cfg config.Config) (*export.MinIOUploader, error) {
	if !cfg.MinIOEnabled() {
		return nil, errors.New("MINIO_ENDPOINT is required for uploads")
	}
	return export.NewMinIOUploader(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
}

func newSheetsWriter(ctx context.Context, cfg config.Config) (*export.SheetsWriter, error) {
	if !cfg.SheetsEnabled() {
		return nil, errors.New("SHEETS_ID and GOOGLE_CREDENTIALS_JSON are required for sheet publishing")
	}
	return export.NewSheetsWriter(ctx, cfg.SheetsID, cfg.GoogleCredentialsJSON)
}
