package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/apaudit/invoice-auditor/internal/audit"
	"github.com/apaudit/invoice-auditor/internal/catalog"
	"github.com/apaudit/invoice-auditor/internal/common"
	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/export"
	"github.com/apaudit/invoice-auditor/internal/matching"
	"github.com/apaudit/invoice-auditor/internal/pipeline"
	"github.com/apaudit/invoice-auditor/internal/pipeline/async"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()
	// The pipeline packages log through slog; give them a JSON handler so the
	// two streams interleave cleanly.
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	// Env
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Thresholds: defaults, optionally overridden from YAML.
	tiers := matching.DefaultConfig()
	tol := validation.DefaultTolerances()
	if cfg.Audit.TolerancesPath != "" {
		fileCfg, err := matching.LoadFile(cfg.Audit.TolerancesPath)
		if err != nil {
			log.Fatalf("loading tolerances: %v", err)
		}
		tiers = fileCfg.Matching
		tol = fileCfg.Validation
		log.Infow("loaded tolerance overrides", "path", cfg.Audit.TolerancesPath)
	}

	// PO catalog
	var (
		cat *catalog.Catalog
		err error
	)
	switch cfg.Catalog.Driver {
	case "sqlite":
		cat, err = catalog.LoadSQLite(cfg.Catalog.Path, logger)
	default:
		cat, err = catalog.LoadJSON(cfg.Catalog.Path, logger)
	}
	if err != nil {
		log.Fatalf("loading PO catalog: %v", err)
	}
	log.Infow("catalog ready", "purchase_orders", cat.Size())

	// Pipeline
	engine := matching.NewEngine(cat, tiers, tol, slogger)
	classifier := discrepancy.NewClassifier(tol)
	proc := pipeline.NewProcessor(engine, classifier, tol, 3, slogger)

	// Audit trail
	trail, err := audit.NewTrailWriter(cfg.Audit.TrailPath, logger)
	if err != nil {
		log.Fatalf("opening audit trail: %v", err)
	}
	defer trail.Close()

	// Result collection
	var (
		mu      sync.Mutex
		results []*pipeline.Result
	)
	sink := func(job async.Job, res *pipeline.Result, err error) {
		if err != nil {
			log.Errorw("invoice audit failed", "path", job.Path, "error", err)
			return
		}
		if aerr := trail.Append(res); aerr != nil {
			log.Errorw("audit trail append failed", "path", job.Path, "error", aerr)
		}
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	queue := async.NewAuditQueue(proc, sink, slogger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)

	// Walk the inbox and enqueue every invoice payload.
	enqueued := 0
	walkErr := filepath.WalkDir(cfg.Audit.InboxDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			log.Errorw("reading invoice payload", "path", path, "error", err)
			return nil
		}
		if err := queue.Enqueue(ctx, async.Job{Path: path, Payload: payload}); err != nil {
			return err
		}
		enqueued++
		return nil
	})
	if walkErr != nil {
		log.Fatalf("walking inbox %s: %v", cfg.Audit.InboxDir, walkErr)
	}
	log.Infow("inbox enqueued", "invoices", enqueued)

	// Drain the queue, then report.
	queue.Shutdown(ctx)

	mu.Lock()
	final := append([]*pipeline.Result(nil), results...)
	mu.Unlock()

	if len(final) > 0 {
		reportSvc := export.NewService(logger)
		raw, err := reportSvc.DiscrepancyReportXLSX(final)
		if err != nil {
			log.Fatalf("building discrepancy report: %v", err)
		}
		if err := os.WriteFile(cfg.Audit.ReportPath, raw, 0o644); err != nil {
			log.Fatalf("writing discrepancy report: %v", err)
		}
		log.Infow("report written", "path", cfg.Audit.ReportPath, "runs", len(final))
	}

	log.Infow("audit batch complete", "processed", len(final), "enqueued", enqueued)
}
