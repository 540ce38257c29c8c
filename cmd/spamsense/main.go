// Copyright 2025 Poiesic Systems
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
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/poiesic/spamsense"
	"github.com/poiesic/spamsense/ai"
	"github.com/poiesic/spamsense/ai/llamacpp"
	"github.com/poiesic/spamsense/classify"
	"github.com/poiesic/spamsense/corpus"
	"github.com/poiesic/spamsense/dataset"
	"github.com/poiesic/spamsense/ingestion"
	"github.com/poiesic/spamsense/persist"
	"github.com/urfave/cli/v2"
)

// defaultSentences are scored by predict when no sentences are given.
var defaultSentences = []string{
	"Lose up to 19% weight. Special promotion on our new weightloss.",
	"Hi Bob, can you send me your machine learning homework?",
	"Don't forget our special promotion: -30% on men shoes, only today!",
	"Hi Bob, don't forget our meeting today at 4pm.",
	"⚠️ FINAL: LAST TERRA PHOENIX AIRDROP 🌎 ✅ CLAIM NOW All participants in this vote will receive a reward..",
	"Social KYC oracle (TYC)  PFC is asking for 20k Luna to build a social KYC protocol..",
}

// defaultLabels are the known labels of defaultSentences.
var defaultLabels = []float64{1, 0, 1, 0, 1, 0}

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "Embedding service URL",
			EnvVars: []string{ai.EnvEndpoint},
		},
		&cli.IntFlag{
			Name:    "context-size",
			Usage:   "Embedding model context size in tokens",
			EnvVars: []string{ai.EnvContextSize},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for a single embedding request",
			Value: 60 * time.Second,
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "spamsense",
		Usage: "Embedding-based spam detection",
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
				Usage:   "Path to the BadgerDB state directory (checkpoints and model)",
				Value:   "./spamsense.db",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Embed a labeled corpus and append the records to a file",
				Action: generateCommand,
				Flags: append(embeddingFlags(),
					&cli.StringSliceFlag{
						Name:     "corpus",
						Aliases:  []string{"c"},
						Usage:    "Labeled CSV corpus with text and label columns (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "File the embedding records are appended to",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records written per flush",
						Value: persist.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N items",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Embedding attempts per item",
						Value: 1,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Skip the items a previous run with the same inputs already handled",
					},
					&cli.BoolFlag{
						Name:  "breaker",
						Usage: "Stop calling the embedding service after repeated transport failures",
					},
				),
			},
			{
				Name:   "train",
				Usage:  "Load embedding files, train the model and test it",
				Action: trainCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "in",
						Aliases:  []string{"i"},
						Usage:    "Embedding file in any supported format (repeatable)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "eval",
						Usage: "Hold out part of the data for testing",
					},
					&cli.Float64Flag{
						Name:  "ratio",
						Usage: "Share of entries used for training with --eval",
						Value: 0.8,
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Seed for the shuffle before the evaluation split",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of neighbors",
						Value: classify.DefaultK,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of files parsed concurrently",
						Value: dataset.DefaultWorkers,
					},
					&cli.BoolFlag{
						Name:  "strict-vectors",
						Usage: "Skip records whose vectors hold non-numeric values instead of dropping those values",
					},
				},
			},
			{
				Name:      "predict",
				Usage:     "Score sentences with the trained model",
				ArgsUsage: "[sentence...]",
				Action:    predictCommand,
				Flags: append(embeddingFlags(),
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of neighbors",
						Value: classify.DefaultK,
					},
				),
			},
		},
	}
}

func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	config := ai.NewConfig(
		ai.WithEndpoint(c.String("endpoint")),
		ai.WithContextSize(c.Int("context-size")),
		ai.WithTimeout(c.Duration("timeout")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return config, nil
}

func generateCommand(c *cli.Context) error {
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if c.Int("max-attempts") <= 0 {
		return fmt.Errorf("max-attempts must be greater than 0")
	}

	aiConfig, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	corpusPaths := c.StringSlice("corpus")
	items, err := corpus.ReadAll(corpusPaths...)
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}

	outPath := c.String("out")
	out, err := os.OpenFile(outPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	opts := []spamsense.WorkspaceOption{spamsense.WithAIConfig(aiConfig)}
	if c.Bool("breaker") {
		opts = append(opts, spamsense.WithBreaker(llamacpp.DefaultBreakerConfig()))
	}
	ws, err := spamsense.OpenWorkspace(c.String("db"), opts...)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer ws.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Corpus: %s (%s items)\n", strings.Join(corpusPaths, ", "), humanize.Comma(int64(len(items))))
	fmt.Fprintf(os.Stderr, "Output: %s\n", outPath)
	fmt.Fprintf(os.Stderr, "Embedding endpoint: %s\n", aiConfig.Endpoint)
	fmt.Fprintln(os.Stderr)

	result, err := ws.Generate(ctx, items, out, spamsense.GenerateOptions{
		BatchSize:      c.Int("batch-size"),
		Progress:       os.Stdout,
		ReportInterval: c.Int("report-interval"),
		RunKey:         spamsense.RunKey(append(slices.Clone(corpusPaths), outPath)...),
		Resume:         c.Bool("resume"),
		ProducerOptions: []ingestion.Option{
			ingestion.WithRetry(c.Int("max-attempts"), c.Duration("retry-delay")),
		},
	})
	if result != nil {
		printGenerateSummary(os.Stderr, result)
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return nil
}

func printGenerateSummary(w io.Writer, result *spamsense.GenerateResult) {
	fmt.Fprintln(w)
	if result.Resumed > 0 {
		fmt.Fprintf(w, "Resumed after: %s items\n", humanize.Comma(int64(result.Resumed)))
	}
	fmt.Fprintf(w, "Processed: %s\n", humanize.Comma(int64(result.Processed)))
	fmt.Fprintf(w, "Written:   %s\n", humanize.Comma(int64(result.Written)))
	fmt.Fprintf(w, "Failed:    %s\n", humanize.Comma(int64(result.Failed)))
	if result.Interrupted > 0 {
		fmt.Fprintf(w, "Interrupted: %s (retried on --resume)\n", humanize.Comma(int64(result.Interrupted)))
	}
	fmt.Fprintf(w, "Elapsed:   %s\n", result.Elapsed.Round(time.Millisecond))
}

func trainCommand(c *cli.Context) error {
	ws, err := spamsense.OpenWorkspace(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer ws.Close()

	loaderOpts := []dataset.LoaderOption{dataset.WithWorkers(c.Int("workers"))}
	if c.Bool("strict-vectors") {
		loaderOpts = append(loaderOpts, dataset.WithStrictVectors())
	}

	d, report, err := ws.NewLoader(loaderOpts...).Load(c.Context, c.StringSlice("in")...)
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}
	printLoadReport(os.Stderr, report)
	if d.Len() == 0 {
		return fmt.Errorf("no embeddings loaded")
	}

	model, err := ws.NewModel(classify.WithK(c.Int("k")))
	if err != nil {
		return err
	}

	result, err := ws.Train(c.Context, model, d, spamsense.TrainOptions{
		Eval:  c.Bool("eval"),
		Ratio: c.Float64("ratio"),
		Seed:  c.Uint64("seed"),
	})
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Number of Spam entries: %s\n", humanize.Comma(int64(result.Stats.Spam)))
	fmt.Printf("Number of Ham entries: %s\n", humanize.Comma(int64(result.Stats.Ham)))
	fmt.Printf("Total entries: %s\n", humanize.Comma(int64(result.Stats.Total)))
	printMetrics(os.Stdout, "Train", result.Train)
	if result.Test != nil {
		printMetrics(os.Stdout, "Test", result.Test)
	}
	return nil
}

func printLoadReport(w io.Writer, report *dataset.LoadReport) {
	formats := make([]string, 0, len(report.Formats))
	for format, n := range report.Formats {
		formats = append(formats, fmt.Sprintf("%s=%s", format, humanize.Comma(int64(n))))
	}
	sort.Strings(formats)

	fmt.Fprintf(w, "Loaded %s records from %d files (%s)\n",
		humanize.Comma(int64(report.Records)), report.Sources, strings.Join(formats, ", "))
	if report.Skipped > 0 || report.Excluded > 0 || report.Degraded > 0 {
		fmt.Fprintf(w, "Skipped: %s, excluded: %s, degraded: %s\n",
			humanize.Comma(int64(report.Skipped)), humanize.Comma(int64(report.Excluded)), humanize.Comma(int64(report.Degraded)))
	}
	for _, path := range report.Unreadable {
		fmt.Fprintf(w, "Unreadable: %s\n", path)
	}
}

func printMetrics(w io.Writer, name string, m *classify.Metrics) {
	fmt.Fprintf(w, "%s: %s entries, MSE %.4f, accuracy %.2f%%, precision %.4f, recall %.4f\n",
		name, humanize.Comma(int64(m.Count)), m.MSE, m.Accuracy*100, m.Precision(), m.Recall())
}

func predictCommand(c *cli.Context) error {
	aiConfig, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	sentences := c.Args().Slice()
	labels := []float64(nil)
	if len(sentences) == 0 {
		sentences = defaultSentences
		labels = defaultLabels
	}

	ws, err := spamsense.OpenWorkspace(c.String("db"), spamsense.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	defer ws.Close()

	model, err := ws.NewModel(classify.WithK(c.Int("k")))
	if err != nil {
		return err
	}

	scores, err := ws.Predict(c.Context, model, sentences)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	fmt.Println("Predictions:")
	for i, score := range scores {
		fmt.Printf("%.4f  %s\n", score, sentences[i])
	}
	if labels != nil {
		fmt.Printf("Labels:\n%v\n", labels)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
