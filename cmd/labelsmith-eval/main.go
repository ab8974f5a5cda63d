package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/labelsmith/labelsmith/internal/config"
	"github.com/labelsmith/labelsmith/internal/eval"
	"github.com/labelsmith/labelsmith/internal/logger"
	"github.com/labelsmith/labelsmith/internal/zeroshot"
)

func main() {
	var (
		configPath = flag.String("config", "configs/default.yaml", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON)")
		labels     = flag.String("labels", "", "Comma-separated candidate labels")
		template   = flag.String("template", "", "Hypothesis template with a {} slot")
		multiLabel = flag.Bool("multi-label", false, "Score labels independently")
		limit      = flag.Int64("limit", 0, "Maximum number of examples to evaluate (0 = all)")
		poolSize   = flag.Int("pool-size", 0, "Number of concurrent pipelines (0 = config/CPU)")
	)
	flag.Parse()

	if *inputFile == "" || *labels == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input dataset.csv --labels travel,cooking,dancing\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input dataset.parquet --labels spam,ham --template \"This message is {}.\"\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting LabelSmith evaluation",
		zap.String("config", *configPath),
		zap.String("input", *inputFile))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling evaluation...")
		cancel()
	}()

	// Check if file exists
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", *inputFile))
	}

	size := cfg.Model.PoolSize
	if *poolSize > 0 {
		size = *poolSize
	}

	log.Info("Loading model", zap.String("path", cfg.Model.Path))
	pool, err := zeroshot.NewPool(
		zeroshot.WithModelPath(cfg.Model.Path),
		size,
		zeroshot.WithMaxLength(cfg.Model.MaxLength),
		zeroshot.WithLogger(log.WithComponent("zeroshot").Logger),
	)
	if err != nil {
		log.Fatal("Failed to load model", zap.Error(err))
	}
	defer pool.Close()

	candidateLabels := splitLabels(*labels)
	runner := eval.NewRunner(pool, &eval.Config{
		CandidateLabels:    candidateLabels,
		HypothesisTemplate: *template,
		MultiLabel:         *multiLabel,
		ValidateData:       true,
		Limit:              *limit,
	}, log.WithComponent("eval").Logger)

	report, err := runner.EvaluateFile(ctx, *inputFile)
	if err != nil {
		log.Fatal("Evaluation failed", zap.Error(err))
	}

	fmt.Printf("\n=== LabelSmith Evaluation Report ===\n")
	fmt.Printf("Dataset:          %s\n", *inputFile)
	fmt.Printf("Candidate Labels: %s\n", strings.Join(candidateLabels, ", "))
	fmt.Printf("Total Examples:   %d\n", report.TotalExamples)
	fmt.Printf("Correct:          %d\n", report.Correct)
	fmt.Printf("Failed:           %d\n", report.Failed)
	fmt.Printf("Skipped:          %d\n", report.Skipped)
	fmt.Printf("Accuracy:         %.2f%%\n", report.Accuracy*100)
	fmt.Printf("Total Duration:   %v\n", report.Duration)
	fmt.Printf("Avg Latency:      %v\n", report.AvgLatency)

	if len(report.Errors) > 0 {
		log.Warn("Evaluation completed with errors", zap.Int("error_count", len(report.Errors)))
	}
}

// splitLabels splits a comma-separated label list, trimming whitespace
func splitLabels(s string) []string {
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}
