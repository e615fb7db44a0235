package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// binancePageSize is the default number of klines returned per request.
const binancePageSize = 500

// BinanceKlinesService is the kline query builder of the Binance client.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the part of the Binance client used for downloads.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPIWrapper struct {
	client *binance.Client
}

func (w *binanceAPIWrapper) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesWrapper{service: w.client.NewKlinesService()}
}

type binanceKlinesWrapper struct {
	service *binance.KlinesService
}

func (w *binanceKlinesWrapper) Symbol(symbol string) BinanceKlinesService {
	w.service.Symbol(symbol)

	return w
}

func (w *binanceKlinesWrapper) Interval(interval string) BinanceKlinesService {
	w.service.Interval(interval)

	return w
}

func (w *binanceKlinesWrapper) StartTime(startTime int64) BinanceKlinesService {
	w.service.StartTime(startTime)

	return w
}

func (w *binanceKlinesWrapper) EndTime(endTime int64) BinanceKlinesService {
	w.service.EndTime(endTime)

	return w
}

func (w *binanceKlinesWrapper) Do(ctx context.Context) ([]*binance.Kline, error) {
	return w.service.Do(ctx)
}

// BinanceClient downloads spot klines from the public Binance API.
type BinanceClient struct {
	apiClient BinanceAPIClient
	writer    writer.BarWriter
	logger    *logger.Logger
}

// NewBinanceClient creates a Binance provider. Public market data needs no credentials.
func NewBinanceClient(log *logger.Logger) *BinanceClient {
	client := NewBinanceClientWithAPI(&binanceAPIWrapper{client: binance.NewClient("", "")})
	if log != nil {
		client.logger = log
	}

	return client
}

// NewBinanceClientWithAPI creates a Binance provider over api.
func NewBinanceClientWithAPI(api BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: api,
		logger:    logger.NewNop(),
	}
}

// ConfigWriter implements Provider.
func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download implements Provider. Bars are written as crypto assets stamped with the kline
// open time. Pages are requested until one comes back short or the range is exhausted.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (string, error) {
	interval, err := convertTimespanToBinanceInterval(timespan, multiplier)
	if err != nil {
		return "", err
	}

	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidConfiguration, "no writer configured for the binance provider")
	}

	if err := c.writer.Initialize(ctx); err != nil {
		return "", err
	}

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	total := float64(endMillis - startMillis)
	message := fmt.Sprintf("Downloading %s klines from Binance", ticker)
	current := startMillis
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		klines, err := c.apiClient.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(current).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch %s klines", ticker)
		}

		if err := processKlines(c.writer, ticker, klines); err != nil {
			return "", err
		}

		count += len(klines)

		if len(klines) < binancePageSize {
			break
		}

		current = klines[len(klines)-1].CloseTime + 1
		reportProgress(onProgress, float64(current-startMillis), total, message)

		if current >= endMillis {
			break
		}
	}

	reportProgress(onProgress, total, total, message)

	c.logger.Info("Downloaded bars", zap.String("provider", "binance"), zap.String("ticker", ticker), zap.Int("bars", count))

	return c.writer.Finalize(ctx)
}

// processKlines converts klines into bars and writes them.
func processKlines(w writer.BarWriter, ticker string, klines []*binance.Kline) error {
	asset := types.Crypto(ticker)

	for _, k := range klines {
		values := [5]float64{}

		for i, text := range [5]string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeDownloadFailed, err, "invalid %s kline at %d", ticker, k.OpenTime)
			}

			values[i] = value
		}

		bar := types.Bar{
			Asset:  asset,
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		}

		if err := w.Write(bar); err != nil {
			return err
		}
	}

	return nil
}

// convertTimespanToBinanceInterval converts a timespan and multiplier to a Binance
// interval string.
// Binance intervals: 1s, 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M.
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	supported := map[models.Timespan][]int{
		models.Second: {1},
		models.Minute: {1, 3, 5, 15, 30},
		models.Hour:   {1, 2, 4, 6, 8, 12},
		models.Day:    {1, 3},
		models.Week:   {1},
		models.Month:  {1},
	}

	suffix := map[models.Timespan]string{
		models.Second: "s",
		models.Minute: "m",
		models.Hour:   "h",
		models.Day:    "d",
		models.Week:   "w",
		models.Month:  "M",
	}

	multipliers, ok := supported[timespan]
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported timespan for binance: %s", timespan)
	}

	for _, m := range multipliers {
		if m == multiplier {
			return fmt.Sprintf("%d%s", multiplier, suffix[timespan]), nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported %s multiplier for binance: %d", timespan, multiplier)
}
