// Copyright 2025 Kestrel Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kestrelhq/trendwatch"
	"github.com/kestrelhq/trendwatch/ai"
	"github.com/kestrelhq/trendwatch/ai/mock"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/ingestion"
	"github.com/kestrelhq/trendwatch/storage"
	"github.com/kestrelhq/trendwatch/titles"
)

func main() {
	app := &cli.App{
		Name:  "trendwatch",
		Usage: "Incremental trend detection over short text signals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./trendwatch_db",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "all-minilm",
			},
			&cli.StringFlag{
				Name:  "title-host",
				Usage: "Title generation service host URL (defaults to embedding-host)",
			},
			&cli.StringFlag{
				Name:  "title-model",
				Usage: "Title generation model name",
				Value: "qwen2.5:3b",
			},
			&cli.BoolFlag{
				Name:  "mock-ai",
				Usage: "Use deterministic mock AI services (no network calls)",
			},
			&cli.StringFlag{
				Name:  "embed-cache",
				Usage: "Persist embeddings to this cache file and reuse them across runs",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Ingest the built-in sample signals",
				Action: seedCommand,
			},
			{
				Name:      "run",
				Usage:     "Run one evolution pass over a batch of signals from a JSON file",
				ArgsUsage: "<signals.json>",
				Action:    runCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "similarity-threshold",
						Usage: "Centroid similarity required to merge into an existing candidate",
					},
					&cli.IntFlag{
						Name:  "neighbor-limit",
						Usage: "Maximum stored neighbors pulled into each proto-cluster",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Hybrid search over the candidate pool",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum combined score for a match (0 = default)",
					},
					&cli.BoolFlag{
						Name:  "legacy",
						Usage: "Use the single-threshold search path",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Similarity threshold for --legacy (0 = default)",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List candidate clusters with their latest decisions",
				Action: listCommand,
			},
			{
				Name:      "export",
				Usage:     "Export the candidate pool to JSON",
				ArgsUsage: "[file]",
				Action:    exportCommand,
			},
			{
				Name:      "import",
				Usage:     "Import a candidate pool from JSON",
				ArgsUsage: "<file>",
				Action:    importCommand,
			},
			{
				Name:   "titles",
				Usage:  "Generate titles for all candidate clusters",
				Action: titlesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cache",
						Usage: "Title cache file",
						Value: titles.DefaultCacheFile,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*trendwatch.Database, error) {
	opts := []trendwatch.DatabaseOption{}

	if c.Bool("mock-ai") {
		opts = append(opts, trendwatch.WithProvider(mock.NewMockProvider()))
	} else {
		titleHost := c.String("title-host")
		if titleHost == "" {
			titleHost = c.String("embedding-host")
		}
		opts = append(opts, trendwatch.WithAIConfig(ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithTitleHost(titleHost),
			ai.WithTitleModel(c.String("title-model")),
		)))
	}

	if cachePath := c.String("embed-cache"); cachePath != "" {
		opts = append(opts, trendwatch.WithEmbedCache(cachePath))
	}

	db, err := trendwatch.NewDatabase(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func seedCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := db.ProcessSignals(context.Background(), ingestion.LoadMockSignals())
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	printReport(report)
	return nil
}

func runCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one signals file, got %d arguments", c.NArg())
	}

	signals, err := storage.ImportSignalsFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to load signals: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var pipelineOpts []ingestion.Option
	if threshold := c.Float64("similarity-threshold"); threshold > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithSimilarityThreshold(threshold))
	}
	if limit := c.Int("neighbor-limit"); limit > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithNeighborLimit(limit))
	}
	pipelineOpts = append(pipelineOpts,
		ingestion.WithProgress(ingestion.NewProgressTracker(os.Stderr, len(signals), 10)))

	pipeline, err := db.NewIngestionPipeline(pipelineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	report, err := pipeline.ProcessSignals(context.Background(), signals)
	if err != nil {
		return fmt.Errorf("evolution pass failed: %w", err)
	}
	printReport(report)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("search query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	matches, err := searchPool(ctx, db, c, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d matching clusters\n", len(matches))
	for i, match := range matches {
		fmt.Printf("%d: %s [%s] final=%.3f semantic=%.3f lexical=%.3f (%d signals)\n",
			i+1, match.Cluster.Id, match.ClusterType,
			match.FinalScore, match.SemanticScore, match.LexicalScore,
			match.Cluster.SignalCount)
	}
	return nil
}

func searchPool(ctx context.Context, db *trendwatch.Database, c *cli.Context, query string) ([]*core.ClusterMatch, error) {
	if c.Bool("legacy") {
		return db.SearchClusters(ctx, query, c.Float64("threshold"))
	}
	return db.SearchHybrid(ctx, query, c.Float64("min-score"))
}

func listCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	candidates, err := db.CandidateRepository().ListCandidates(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}

	fmt.Printf("%d candidate clusters\n", len(candidates))
	for _, candidate := range candidates {
		fmt.Printf("\n%s  signals=%d  growth=%.2f  coherence=%.2f\n",
			candidate.Id, candidate.SignalCount, candidate.GrowthRatio, candidate.Coherence)
		if candidate.ControllerDecision != nil {
			fmt.Printf("  %s\n", candidate.ControllerDecision.DecisionTrace)
		}
		for _, signal := range candidate.Signals {
			fmt.Printf("  - [%s] %s\n", signal.Source, signal.Text)
		}
	}
	return nil
}

func exportCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = storage.DefaultExportFile
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	candidates, err := db.CandidateRepository().ListCandidates(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}
	if err := storage.ExportCandidatesFile(path, candidates); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d candidates to %s\n", len(candidates), path)
	return nil
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one pool file, got %d arguments", c.NArg())
	}

	candidates, err := storage.ImportCandidatesFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CandidateRepository().UpsertCandidates(context.Background(), candidates...); err != nil {
		return fmt.Errorf("failed to store candidates: %w", err)
	}

	fmt.Printf("Imported %d candidates\n", len(candidates))
	return nil
}

func titlesCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cache := titles.NewCache(c.String("cache"))
	if err := cache.Load(); err != nil {
		return fmt.Errorf("failed to load title cache: %w", err)
	}

	generator, err := db.NewTitleGenerator(cache)
	if err != nil {
		return fmt.Errorf("failed to create title generator: %w", err)
	}

	ctx := context.Background()
	candidates, err := db.CandidateRepository().ListCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}

	for _, candidate := range candidates {
		texts := make([]string, 0, len(candidate.Signals))
		for _, signal := range candidate.Signals {
			texts = append(texts, signal.Text)
		}
		title := generator.Title(ctx, candidate.Id, texts)
		fmt.Printf("%s: %s\n", candidate.Id, title)
	}

	if err := cache.Flush(); err != nil {
		return fmt.Errorf("failed to save title cache: %w", err)
	}
	return nil
}

func printReport(report *ingestion.RunReport) {
	fmt.Printf("Processed %d signals in %s\n", report.SignalsProcessed, report.Elapsed.Round(time.Millisecond))
	fmt.Printf("  proto-clusters: %d (merged %d)\n", report.ProtoClusters, report.ProtosMerged)
	fmt.Printf("  pool: %d -> %d (%d created)\n", report.PoolBefore, report.PoolAfter, report.CandidatesCreated)
	fmt.Printf("  decisions: %d promoted, %d kept, %d demoted\n",
		report.Promoted, report.KeptCandidate, report.Demoted)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
