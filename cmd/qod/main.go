package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/weatherxm-network/qod/internal/catalog"
	"github.com/weatherxm-network/qod/internal/ingest"
	"github.com/weatherxm-network/qod/internal/metrics"
	"github.com/weatherxm-network/qod/internal/output"
	"github.com/weatherxm-network/qod/internal/qc"
	"github.com/weatherxm-network/qod/internal/store"
)

var cli struct {
	Device      string `required:"" help:"Device id to evaluate."`
	Date        string `required:"" help:"Target date, YYYY-MM-DD (UTC)."`
	Day1        string `required:"" help:"CSV batch for the day before the target date (path or URL)."`
	Day2        string `required:"" help:"CSV batch for the target date (path or URL)."`
	Out         string `help:"Write the hourly summary CSV here instead of stdout."`
	DB          string `help:"Persist run and summaries to this SQLite database."`
	MetricsAddr string `help:"Serve Prometheus metrics on this address while running."`
	TiePolicy   string `default:"first" enum:"first,last,mean" help:"Which of several equally close readings claims a grid slot."`
	Precision   int    `default:"2" help:"Decimal places of reported percentages."`
	LogLevel    string `default:"info" enum:"debug,info,warn,error" help:"Log verbosity."`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var tiePolicies = map[string]qc.TiePolicy{
	"first": qc.TieFirst,
	"last":  qc.TieLast,
	"mean":  qc.TieMean,
}

func main() {
	kong.Parse(&cli,
		kong.Name("qod"),
		kong.Description("Annotates one device-day of weather-station readings with data-quality codes."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevels[cli.LogLevel],
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	date, err := time.Parse("2006-01-02", cli.Date)
	if err != nil {
		return err
	}

	if cli.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cli.MetricsAddr, mux); err != nil {
				logger.Error("metrics listener", "error", err)
			}
		}()
	}

	logger.Info("loading batches", "device", cli.Device, "date", cli.Date)
	day1, err := ingest.FetchBatch(ctx, ingest.NewSource(cli.Day1), cli.Device)
	if err != nil {
		return err
	}
	day2, err := ingest.FetchBatch(ctx, ingest.NewSource(cli.Day2), cli.Device)
	if err != nil {
		return err
	}

	// Keep the full previous day; the engine's resampling grid
	// enforces the model's own lookback.
	in, err := ingest.Load(day1, day2, date, 24*time.Hour)
	if err != nil {
		return err
	}

	spec, err := catalog.Lookup(in.Model)
	if err != nil {
		return err
	}
	logger.Info("resolved station model",
		"model", spec.Model,
		"class", spec.Class().String(),
		"readings", len(in.Readings),
	)
	metrics.ReadingsProcessed.WithLabelValues(spec.Model).Add(float64(len(in.Readings)))

	opts := qc.Options{TiePolicy: tiePolicies[cli.TiePolicy], Precision: cli.Precision}
	started := time.Now()
	res, err := qc.Run(in.Readings, spec, date, opts)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(spec.Model, "error").Inc()
		return err
	}
	metrics.RunsTotal.WithLabelValues(spec.Model, "ok").Inc()
	metrics.RunDuration.WithLabelValues(spec.Model).Observe(time.Since(started).Seconds())
	for _, sum := range res.Summaries {
		for _, c := range sum.Codes.Codes() {
			metrics.AnnotationsEmitted.WithLabelValues(spec.Model, c.String()).Inc()
		}
	}

	var w io.Writer = os.Stdout
	if cli.Out != "" {
		f, err := os.Create(cli.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := output.WriteCSV(w, cli.Device, date, res.Summaries); err != nil {
		return err
	}

	if cli.DB != "" {
		if err := persist(in, spec, date, res, started); err != nil {
			return err
		}
	}

	logger.Info("run complete",
		"summaries", len(res.Summaries),
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

func persist(in *ingest.Input, spec catalog.Spec, date time.Time, res *qc.Result, started time.Time) error {
	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return err
	}
	if err := st.UpsertSummaries(cli.Device, date, res.Summaries); err != nil {
		return err
	}
	return st.InsertRun(store.Run{
		DeviceID:   cli.Device,
		Date:       date,
		Model:      spec.Model,
		Readings:   len(in.Readings),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
}
