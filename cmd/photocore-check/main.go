// Command photocore-check inspects and exercises a photocore configuration
// tree from the command line: it verifies configuration integrity, lists
// resolved formats, detects the format of an image described by metadata,
// validates a measurement bundle and takes configuration backups.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"photocore/internal/archive"
	"photocore/internal/catalog"
	"photocore/internal/detect"
	"photocore/internal/engineconfig"
	"photocore/internal/formats"
	"photocore/internal/logging"
	"photocore/internal/observability"
	"photocore/internal/reload"
	"photocore/internal/reports"
	"photocore/internal/validate"
	"photocore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	global := flag.NewFlagSet("photocore-check", flag.ContinueOnError)
	configPath := global.String("config", "photocore.yaml", "engine configuration file")
	verbose := global.Bool("v", false, "verbose logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage()
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.Slog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := engineconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	ctx := context.Background()
	store := formats.NewStore(cfg.FormatDirs, formats.WithLogger(logger))
	metrics := observability.New(cfg.Metrics.Namespace, prometheus.NewRegistry())

	switch rest[0] {
	case "integrity":
		return runIntegrity(store, logger, metrics)
	case "formats":
		return runFormats(store, logger)
	case "detect":
		return runDetect(store, logger, metrics, rest[1:])
	case "validate":
		return runValidate(ctx, store, cfg, logger, metrics, rest[1:])
	case "backup":
		return runBackup(ctx, store, cfg, logger, metrics)
	default:
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: photocore-check [-config file] [-v] <command>

commands:
  integrity                 check every configuration document without loading it
  formats                   load and list the resolved formats
  detect   <metadata.json>  rank formats against image metadata
  validate <format> <bundle.json>  validate a measurement bundle
  backup                    archive the configuration directories`)
}

func runIntegrity(store *formats.Store, logger logging.Logger, metrics *observability.Metrics) int {
	manager := reload.NewManager(store, reload.WithLogger(logger), reload.WithObserver(metrics))
	report, err := manager.ValidateIntegrity()
	if err != nil {
		fmt.Fprintln(os.Stderr, "integrity:", err)
		return 1
	}
	printJSON(report)
	if !report.Valid() {
		return 1
	}
	return 0
}

func runFormats(store *formats.Store, logger logging.Logger) int {
	snap, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		return 1
	}
	snap.Each(func(rule domain.FormatRule) {
		fmt.Printf("%-24s %4dx%-4d %s\n",
			rule.FormatID, rule.Dimensions.Width, rule.Dimensions.Height, rule.DisplayName)
	})
	for _, skipErr := range snap.Skipped() {
		fmt.Fprintln(os.Stderr, "skipped:", skipErr)
	}
	return 0
}

func runDetect(store *formats.Store, logger logging.Logger, metrics *observability.Metrics, args []string) int {
	if len(args) != 1 {
		usage()
		return 2
	}
	var meta domain.ImageMetadata
	if err := readJSONFile(args[0], &meta); err != nil {
		fmt.Fprintln(os.Stderr, "metadata:", err)
		return 1
	}
	if _, err := store.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		return 1
	}
	detector := detect.New(store, detect.WithLogger(logger), detect.WithObserver(metrics))
	matches := detector.Detect(meta, 0.3)
	printJSON(matches)
	if len(matches) == 0 {
		return 1
	}
	return 0
}

func runValidate(ctx context.Context, store *formats.Store, cfg engineconfig.Config, logger logging.Logger, metrics *observability.Metrics, args []string) int {
	if len(args) != 2 {
		usage()
		return 2
	}
	var bundle domain.MeasurementBundle
	if err := readJSONFile(args[1], &bundle); err != nil {
		fmt.Fprintln(os.Stderr, "bundle:", err)
		return 1
	}
	if _, err := store.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		return 1
	}
	cat, err := catalog.Load(cfg.CatalogDir, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog:", err)
		return 1
	}
	validator := validate.New(store, cat, validate.WithLogger(logger), validate.WithObserver(metrics))
	result, err := validator.Validate(args[0], bundle)
	if err != nil {
		fmt.Fprintln(os.Stderr, "validate:", err)
		return 1
	}
	if err := recordResult(ctx, cfg, logger, result); err != nil {
		fmt.Fprintln(os.Stderr, "reports:", err)
		return 1
	}
	printJSON(result)
	fmt.Println(result.Summary())
	if !result.OverallPass {
		return 1
	}
	return 0
}

// recordResult archives the outcome when a durable report store is
// configured. The default in-memory driver would not outlive the process,
// so it is skipped here.
func recordResult(ctx context.Context, cfg engineconfig.Config, logger logging.Logger, result domain.ComplianceResult) error {
	if cfg.Reports.Driver == "" || cfg.Reports.Driver == "memory" {
		return nil
	}
	store, err := reports.Open(ctx, reports.Config{
		Driver: cfg.Reports.Driver,
		Path:   cfg.Reports.Path,
		DSN:    cfg.Reports.DSN,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("close report store", "error", cerr)
		}
	}()
	rec, err := store.Record(ctx, result)
	if err != nil {
		return err
	}
	logger.Debug("validation recorded", "report_id", rec.ID)
	return nil
}

func runBackup(ctx context.Context, store *formats.Store, cfg engineconfig.Config, logger logging.Logger, metrics *observability.Metrics) int {
	arch, err := archive.Open(ctx, archive.Config{
		Driver: cfg.Backup.Driver,
		Root:   cfg.Backup.Root,
		Bucket: cfg.Backup.Bucket,
		Prefix: cfg.Backup.Prefix,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "archive:", err)
		return 1
	}
	manager := reload.NewManager(store, reload.WithLogger(logger), reload.WithObserver(metrics))
	info, err := manager.Backup(ctx, arch)
	if err != nil {
		fmt.Fprintln(os.Stderr, "backup:", err)
		return 1
	}
	if cfg.Reload.MaxBackups > 0 {
		if _, err := manager.PruneBackups(ctx, arch, cfg.Reload.MaxBackups); err != nil {
			fmt.Fprintln(os.Stderr, "prune:", err)
			return 1
		}
	}
	printJSON(info)
	return 0
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
