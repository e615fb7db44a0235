// Package marketdata downloads historical bars into Parquet files laid out for the
// DuckDB event source of the backtest.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ProviderType names a market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// ClientConfig configures a download client.
type ClientConfig struct {
	Provider      ProviderType `validate:"required,oneof=polygon binance"`
	DataPath      string       `validate:"required"`
	PolygonAPIKey string       `validate:"required_if=Provider polygon"`
}

// DownloadParams describes one download.
type DownloadParams struct {
	Ticker    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
	Interval  Timespan  `validate:"required"`
}

// OutputFileName returns TICKER_START_END_INTERVAL.parquet.
func (p DownloadParams) OutputFileName() string {
	return fmt.Sprintf("%s_%s_%s_%s.parquet",
		p.Ticker,
		p.StartDate.Format("2006-01-02"),
		p.EndDate.Format("2006-01-02"),
		p.Interval,
	)
}

// Client downloads bars from one provider into DataPath.
type Client struct {
	provider provider.Provider
	config   ClientConfig
	validate *validator.Validate
	logger   *logger.Logger
}

// NewClient creates a client for the configured provider.
func NewClient(config ClientConfig, log *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		if config.Provider != "" && config.Provider != ProviderPolygon && config.Provider != ProviderBinance {
			return nil, errors.Wrapf(errors.ErrCodeUnsupportedProvider, err, "unsupported provider %q", config.Provider)
		}

		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download client configuration", err)
	}

	var marketProvider provider.Provider

	switch config.Provider {
	case ProviderPolygon:
		polygonClient, err := provider.NewPolygonClient(config.PolygonAPIKey, log)
		if err != nil {
			return nil, err
		}

		marketProvider = polygonClient
	case ProviderBinance:
		marketProvider = provider.NewBinanceClient(log)
	}

	return newClient(marketProvider, config, log), nil
}

func newClient(marketProvider provider.Provider, config ClientConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		provider: marketProvider,
		config:   config,
		validate: validator.New(),
		logger:   log,
	}
}

// Download fetches the bars described by params and returns the Parquet file path.
// Cancel ctx to stop the download.
func (c *Client) Download(ctx context.Context, params DownloadParams, onProgress provider.OnDownloadProgress) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	interval, err := ParseTimespan(string(params.Interval))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeBarWriteFailed, err, "failed to create %s", c.config.DataPath)
	}

	outputPath := filepath.Join(c.config.DataPath, params.OutputFileName())

	barWriter := writer.NewDuckDBWriter(outputPath, c.logger)
	defer func() {
		if err := barWriter.Close(); err != nil {
			c.logger.Warn("Failed to close bar writer", zap.Error(err))
		}
	}()

	c.provider.ConfigWriter(barWriter)

	c.logger.Info("Starting download",
		zap.String("provider", string(c.config.Provider)),
		zap.String("ticker", params.Ticker),
		zap.String("interval", string(interval)),
		zap.Time("start", params.StartDate),
		zap.Time("end", params.EndDate),
	)

	return c.provider.Download(ctx, params.Ticker, params.StartDate, params.EndDate,
		interval.Multiplier(), interval.Timespan(), onProgress)
}
