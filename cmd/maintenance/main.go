package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/marchelocal/server/internal/cleanup"
	"github.com/marchelocal/server/internal/config"
	"github.com/marchelocal/server/internal/enricher"
	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/pgstore"
	"github.com/marchelocal/server/internal/services"
	"github.com/marchelocal/server/internal/telemetry"
	"github.com/marchelocal/server/pkg/geocode"
)

var tasks = []string{"geocode", "cleanup", "dedupe"}

func main() {
	taskFlag := flag.String("task", "", "comma separated tasks to run: "+strings.Join(tasks, ", ")+" or all")
	schedule := flag.String("schedule", "", "cron spec; run periodically instead of once")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(logger.Options{JSON: !cfg.IsDevelopment(), Level: cfg.LogLevel}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.GetLogger("main")

	selected, err := parseTasks(*taskFlag)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(2)
	}
	if *schedule == "" {
		*schedule = cfg.MaintenanceSchedule
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMeter, err := telemetry.InitMeter(ctx, "marchelocal-maintenance", cfg.SigNozEndpoint)
	if err != nil {
		log.Warnf("Failed to initialize metrics (continuing): %v", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMeter(shutdownCtx)
		}()
	}

	db, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Errorf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	w := &worker{
		enricher: enricher.New(
			db,
			services.NewGeocodeService(db, geocode.NewClient(
				geocode.WithBaseURL(cfg.GeocoderBaseURL),
				geocode.WithRateLimit(cfg.GeocoderRPS),
				geocode.WithLogger(logger.GetLogger("geocoder")),
			), cfg.GeocodeCacheTTL),
			cfg.MaintenanceBatchSize,
		),
		cleaner: cleanup.New(db, cfg.MaintenanceBatchSize),
		tasks:   selected,
	}

	if *schedule == "" {
		if err := w.run(ctx); err != nil {
			log.Errorf("Maintenance failed: %v", err)
			os.Exit(1)
		}
		return
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(*schedule, func() {
		if err := w.run(ctx); err != nil {
			log.Errorf("Maintenance failed: %v", err)
		}
	}); err != nil {
		log.Errorf("Invalid schedule %q: %v", *schedule, err)
		os.Exit(2)
	}

	log.Infof("Maintenance scheduled (%s): %s", *schedule, strings.Join(selected, ", "))
	c.Start()
	<-ctx.Done()

	log.Info("Shutting down, waiting for running task...")
	<-c.Stop().Done()
}

type worker struct {
	enricher *enricher.Enricher
	cleaner  *cleanup.Cleaner
	tasks    []string
}

// run executes the selected tasks in order and stops at the first failure
func (w *worker) run(ctx context.Context) error {
	log := logger.GetLogger("main")

	for _, task := range w.tasks {
		start := time.Now()
		log.Infof("========== Task started: %s ==========", task)

		var err error
		switch task {
		case "geocode":
			var report enricher.Report
			report, err = w.enricher.Run(ctx)
			telemetry.RecordMaintenance(ctx, task, report.Rows(), time.Since(start), err)
			log.Infow("Geocode backfill report",
				"scanned", report.Scanned,
				"located", report.Located,
				"verified", report.Verified,
				"drifted", report.Drifted,
				"not_found", report.NotFound,
				"failed", report.Failed,
			)
		case "cleanup":
			_, err = w.cleaner.PurgeGeocodeCache(ctx)
		case "dedupe":
			_, err = w.cleaner.DeduplicateMarkets(ctx)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", task, err)
		}

		log.Infof("========== Task finished: %s (%v) ==========", task, time.Since(start))
	}
	return nil
}

func parseTasks(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("no task given, use -task %s", strings.Join(tasks, "|"))
	}
	if s == "all" {
		return tasks, nil
	}

	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		known := false
		for _, k := range tasks {
			if t == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown task %q, available: %s", t, strings.Join(tasks, ", "))
		}
		out = append(out, t)
	}
	return out, nil
}
