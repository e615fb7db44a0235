package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// parseDate accepts a date (2006-01-02) or an RFC3339 timestamp.
func parseDate(text string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, text); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", text)
	}

	return t, nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	start, err := parseDate(cmd.String("start"))
	if err != nil {
		return err
	}

	end, err := parseDate(cmd.String("end"))
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(logger.ParseLevel(cmd.String("log-level")))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		Provider:      marketdata.ProviderType(cmd.String("provider")),
		DataPath:      cmd.String("data-path"),
		PolygonAPIKey: cmd.String("api-key"),
	}, log)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	if !cmd.Bool("no-progress") {
		bar = progressbar.NewOptions64(100,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", cmd.String("ticker"))),
			progressbar.OptionShowCount(),
		)
	}

	path, err := client.Download(ctx, marketdata.DownloadParams{
		Ticker:    cmd.String("ticker"),
		StartDate: start,
		EndDate:   end,
		Interval:  marketdata.Timespan(cmd.String("interval")),
	}, func(current float64, total float64, _ string) {
		if bar == nil || total <= 0 {
			return
		}

		_ = bar.Set64(int64(min(current/total, 1) * 100))
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return err
	}

	log.Info("Download completed", zap.String("path", path))
	_, err = fmt.Fprintln(cmd.Root().Writer, path)

	return err
}

func providersAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(cmd.Root().Writer, "%s\t%s\t%s\n", info.Name, info.AssetClass, info.Description); err != nil {
			return err
		}
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars into Parquet files for backtests",
		Commands: []*cli.Command{
			{
				Name:  "bars",
				Usage: "Download the bars of one ticker",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Market data provider (polygon, binance)",
						Value:   string(marketdata.ProviderBinance),
					},
					&cli.StringFlag{
						Name:     "ticker",
						Aliases:  []string{"t"},
						Usage:    "Symbol to download, e.g. AAPL or BTCUSDT",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "start",
						Usage:    "Start date (YYYY-MM-DD or RFC3339)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "end",
						Usage:    "End date (YYYY-MM-DD or RFC3339)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Bar interval, e.g. 1m, 15m, 1h, 1d",
						Value:   string(marketdata.TimespanOneDay),
					},
					&cli.StringFlag{
						Name:    "data-path",
						Aliases: []string{"o"},
						Usage:   "Folder the Parquet file is written to",
						Value:   "data",
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Polygon.io API key",
						Sources: cli.EnvVars("POLYGON_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "log-level",
						Aliases: []string{"l"},
						Usage:   "Log level (debug, info, warn, error)",
						Value:   "info",
						Sources: cli.EnvVars("ARGO_LOG_LEVEL"),
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Hide the progress bar",
					},
				},
				Action: downloadAction,
			},
			{
				Name:   "providers",
				Usage:  "List the supported providers",
				Action: providersAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
