package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "anthem",
		Usage: "reconcile staking portfolio history into daily charts and exports",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: runMigrate,
			},
			{
				Name:  "import",
				Usage: "store a history document in the history store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "history JSON `FILE`", Required: true},
				},
				Action: runImport,
			},
			{
				Name:   "chart",
				Usage:  "print the reconciled chart data as JSON",
				Flags:  sourceFlags(),
				Action: runChart,
			},
			{
				Name:  "export",
				Usage: "write the reconciled history as CSV or XLSX",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "csv", Usage: "csv or xlsx"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `FILE`; stdout when empty (csv only)"},
					&cli.BoolFlag{Name: "upload", Usage: "also upload to the configured bucket"},
					&cli.BoolFlag{Name: "sheet", Usage: "also publish to the configured spreadsheet"},
				}, sourceFlags()...),
				Action: runExport,
			},
			{
				Name:  "preview",
				Usage: "print the export as a table",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 30, Usage: "show the last `N` days; 0 for all"},
				}, sourceFlags()...),
				Action: runPreview,
			},
			{
				Name:   "watch",
				Usage:  "periodically export every configured address",
				Action: runWatch,
			},
		},
	}
}

// sourceFlags selects where a command reads history from.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "read history from a JSON `FILE`"},
		&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "load history for `ADDRESS` from the history store"},
		&cli.BoolFlag{Name: "fiat", Usage: "display values in the configured fiat currency"},
	}
}
