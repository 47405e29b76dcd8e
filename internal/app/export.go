package app

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"oraclewatcher/internal/decimal"
	"oraclewatcher/internal/storage"
)

// Export renders a feed's historical quotes as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	quotes, err := store.ListQuotesBetween(ctx, opts.FeedID, from, to)
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		a.Logger.Info().Msg("no quotes found for export window")
		return nil
	}

	downsampled := downsampleQuotes(quotes, opts.MaxPoints)
	a.Logger.Info().Int("total", len(quotes)).Int("exported", len(downsampled)).Msg("exporting quotes")

	if opts.CSVPath != "" {
		if err := writeQuotesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeQuotesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleQuotes(quotes []storage.QuoteRecord, max int) []storage.QuoteRecord {
	if max <= 0 || len(quotes) <= max {
		return quotes
	}

	result := make([]storage.QuoteRecord, 0, max)
	step := float64(len(quotes)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(quotes) {
			idx = len(quotes) - 1
		}
		result = append(result, quotes[idx])
	}
	return result
}

func writeQuotesCSV(path string, quotes []storage.QuoteRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "slot", "feed_id", "value", "oracle_count", "queue"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, q := range quotes {
		record := []string{
			timeFromMs(q.TimestampMs).Format(time.RFC3339),
			formatUint64(q.Slot),
			hex.EncodeToString(q.FeedID[:]),
			q.Value.String(),
			formatUint64(uint64(len(q.Oracles))),
			hex.EncodeToString(q.Queue[:]),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeQuotesPNG(path string, quotes []storage.QuoteRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(quotes))
	values := make([]float64, len(quotes))

	for i, q := range quotes {
		x[i] = timeFromMs(q.TimestampMs)
		values[i] = decimalToFloat(q.Value)
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.6f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Quote value",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Value",
				XValues: x,
				YValues: values,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func timeFromMs(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

func formatUint64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func decimalToFloat(d decimal.Decimal) float64 {
	magnitude, neg := d.Unpack()
	f := new(big.Float).SetInt(magnitude)
	v, _ := f.Float64()
	if neg {
		v = -v
	}
	return v
}
