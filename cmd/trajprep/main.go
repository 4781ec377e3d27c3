// Command trajprep turns NGSIM trajectory logs into labeled, partitioned
// training data and serves batches from the stored runs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/db"
	"github.com/banshee-data/trajprep/internal/monitoring"
	"github.com/banshee-data/trajprep/internal/pipeline"
	"github.com/banshee-data/trajprep/internal/report"
	"github.com/banshee-data/trajprep/internal/trajectory/sampler"
	"github.com/banshee-data/trajprep/internal/trajectory/split"
	"github.com/banshee-data/trajprep/internal/version"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("trajprep: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(out)
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "build":
		return handleBuild(ctx, rest, out)
	case "migrate":
		return handleMigrate(rest, out)
	case "runs":
		return handleRuns(ctx, rest, out)
	case "report":
		return handleReport(ctx, rest, out)
	case "batch":
		return handleBatch(ctx, rest, out)
	case "version":
		fmt.Fprintln(out, version.String())
		return nil
	case "help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n\n", command)
		printUsage(out)
		return errUsage
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `trajprep - trajectory preprocessing for maneuver-aware prediction

Usage: trajprep <command> [options]

Commands:
  build     Ingest NGSIM files, label, partition and store a run
  migrate   Manage the database schema (up, down, status)
  runs      List stored runs
  report    Write label statistics and charts for a run
  batch     Collate one batch from a stored split
  version   Show version information
  help      Show this help message

Examples:
  trajprep build -db prep.db -weather hollywood.csv,hollywood.csv us-101/a.txt us-101/b.txt
  trajprep batch -db prep.db -run <id> -split train -size 128`)
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func loadParams(path string) (config.Params, error) {
	cfg := config.EmptyPipelineConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadPipelineConfig(path); err != nil {
			return config.Params{}, err
		}
	}
	return cfg.Resolve()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func handleBuild(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("build", out)
	configPath := fs.String("config", "", "Pipeline config file (.json or .yaml)")
	dbPath := fs.String("db", "trajprep.db", "Output sqlite database")
	weatherList := fs.String("weather", "", "Comma-separated weather CSVs, one per trajectory file")
	parquetDir := fs.String("parquet", "", "Also export each split as parquet into this directory")
	logPath := fs.String("log", "", "Write progress logs to this file instead of stderr")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	files := fs.Args()
	if len(files) == 0 {
		return fmt.Errorf("build: no trajectory files given")
	}
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			return fmt.Errorf("build: open log: %w", err)
		}
		defer f.Close()
		prev := monitoring.Logf
		monitoring.SetLogWriter(f)
		defer func() { monitoring.Logf = prev }()
	}

	params, err := loadParams(*configPath)
	if err != nil {
		return err
	}
	weatherFiles := splitList(*weatherList)

	obs, err := pipeline.Ingest(params, files, weatherFiles)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(ctx, params, obs)
	if err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	runRec, err := database.CreateRun(params, append(append([]string{}, files...), weatherFiles...))
	if err != nil {
		return err
	}
	if err := pipeline.Persist(ctx, database, runRec.ID, res.Split, *parquetDir); err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: train=%d val=%d test=%d\n",
		runRec.ID, len(res.Split.Train), len(res.Split.Validation), len(res.Split.Test))
	return nil
}

func handleMigrate(args []string, out io.Writer) error {
	var action []string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[:1], args[1:]
	}
	fs := newFlagSet("migrate", out)
	dbPath := fs.String("db", "trajprep.db", "sqlite database")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return db.RunMigrateCommand(append(action, fs.Args()...), *dbPath, out)
}

func handleRuns(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("runs", out)
	dbPath := fs.String("db", "trajprep.db", "sqlite database")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns()
	if err != nil {
		return err
	}
	for _, r := range runs {
		sizes, err := database.SplitSizes(ctx, r.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s  %s  train=%d val=%d test=%d  sources=%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ToolVersion,
			sizes[split.Train], sizes[split.Validation], sizes[split.Test], len(r.Sources))
	}
	return nil
}

func handleReport(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("report", out)
	dbPath := fs.String("db", "trajprep.db", "sqlite database")
	runID := fs.String("run", "", "Run id (required)")
	outDir := fs.String("out", "report", "Output directory")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *runID == "" {
		return fmt.Errorf("report: -run is required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if _, err := database.GetRun(*runID); err != nil {
		return err
	}

	var summaries []report.Summary
	for _, name := range split.Names {
		rows, err := database.LoadSplit(ctx, *runID, name)
		if err != nil {
			return err
		}
		s := report.Summarize(name, rows)
		summaries = append(summaries, s)
		fmt.Fprintf(out, "%-5s rows=%d vehicles=%d lateral=%v longitudinal=%v track_len=%.1f±%.1f occupied=%.2f\n",
			s.Split, s.Rows, s.Vehicles, s.Lateral, s.Longitudinal, s.TrackLenMean, s.TrackLenStdDev, s.MeanOccupied)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outDir, "summary.json"), data, 0644); err != nil {
		return err
	}
	if err := report.WritePNG(filepath.Join(*outDir, "labels.png"), summaries); err != nil {
		return err
	}
	return report.WriteHTML(filepath.Join(*outDir, "labels.html"), *runID, summaries)
}

func handleBatch(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("batch", out)
	dbPath := fs.String("db", "trajprep.db", "sqlite database")
	runID := fs.String("run", "", "Run id (required)")
	splitName := fs.String("split", split.Train, "Split to read (train, val or test)")
	size := fs.Int("size", 128, "Batch size")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *runID == "" {
		return fmt.Errorf("batch: -run is required")
	}
	if *size <= 0 {
		return fmt.Errorf("batch: -size must be positive")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	runRec, err := database.GetRun(*runID)
	if err != nil {
		return err
	}
	rows, err := database.LoadSplit(ctx, *runID, *splitName)
	if err != nil {
		return err
	}
	tracks, err := database.LoadTracks(ctx, *runID, *splitName)
	if err != nil {
		return err
	}

	ds, err := sampler.NewDatasetWithTracks(rows, tracks, sampler.WindowConfigFromParams(runRec.Params))
	if err != nil {
		return err
	}
	usable := ds.Usable()
	fmt.Fprintf(out, "split=%s rows=%d tracks=%d usable=%d\n", *splitName, ds.Len(), len(tracks), len(usable))
	if len(usable) == 0 {
		return fmt.Errorf("batch: split %s has no usable samples", *splitName)
	}

	b, err := ds.Batch(usable[:min(*size, len(usable))])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "batch size=%d history=%v future=%v neighbors=%d×%v mask_fill=%.0f\n",
		b.Size, b.History.Shape, b.Future.Shape, len(b.Neighbors), b.Neighbors[0].Shape, b.FutureMask.Sum())
	return nil
}
