package eval

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/labelsmith/labelsmith/internal/zeroshot"
)

// Runner evaluates classification accuracy over labeled datasets
type Runner struct {
	classifier zeroshot.Classifier
	config     *Config
	logger     *zap.Logger
}

// NewRunner creates a new evaluation runner
func NewRunner(classifier zeroshot.Classifier, config *Config, logger *zap.Logger) *Runner {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.ProgressReport <= 0 {
		config.ProgressReport = 100
	}
	return &Runner{
		classifier: classifier,
		config:     config,
		logger:     logger,
	}
}

// EvaluateFile evaluates a dataset file (CSV, Parquet, or JSON lines)
func (r *Runner) EvaluateFile(ctx context.Context, filePath string) (*Report, error) {
	r.logger.Info("Starting evaluation",
		zap.String("file", filePath),
		zap.Strings("candidate_labels", r.config.CandidateLabels),
		zap.Bool("multi_label", r.config.MultiLabel))

	start := time.Now()
	report := &Report{}

	format := DetectFileFormat(filePath)
	r.logger.Info("Detected file format", zap.String("format", string(format)))

	var err error
	switch format {
	case FormatCSV:
		err = r.evaluateCSV(ctx, filePath, report)
	case FormatParquet:
		err = r.evaluateParquet(ctx, filePath, report)
	case FormatJSON:
		err = r.evaluateJSON(ctx, filePath, report)
	default:
		return report, fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return report, fmt.Errorf("%s evaluation failed: %w", format, err)
	}

	report.Duration = time.Since(start)
	if report.TotalExamples > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.TotalExamples)
		report.AvgLatency = report.Duration / time.Duration(report.TotalExamples)
	}

	r.logger.Info("Evaluation completed",
		zap.Int64("total_examples", report.TotalExamples),
		zap.Int64("correct", report.Correct),
		zap.Int64("failed", report.Failed),
		zap.Int64("skipped", report.Skipped),
		zap.Float64("accuracy", report.Accuracy),
		zap.Duration("duration", report.Duration),
		zap.Duration("avg_latency", report.AvgLatency))

	return report, nil
}

// evaluateCSV evaluates CSV files with a text,label header
func (r *Runner) evaluateCSV(ctx context.Context, filePath string, report *Report) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2 // text, label

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	r.logger.Debug("CSV header detected", zap.Strings("columns", header))

	return r.evaluateBatches(ctx, func() ([]*Example, error) {
		var batch []*Example

		for len(batch) < r.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				r.logger.Warn("Failed to read CSV record", zap.Error(err))
				report.Skipped++
				continue
			}

			example := &Example{
				Text:  strings.TrimSpace(record[0]),
				Label: strings.TrimSpace(record[1]),
			}
			if r.validateExample(example) {
				batch = append(batch, example)
			} else {
				report.Skipped++
			}
		}

		return batch, nil
	}, report)
}

// evaluateParquet evaluates Parquet files
func (r *Runner) evaluateParquet(ctx context.Context, filePath string, report *Report) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return r.evaluateBatches(ctx, func() ([]*Example, error) {
		var batch []*Example

		for len(batch) < r.config.BatchSize {
			var example Example
			err := reader.Read(&example)
			if err == io.EOF {
				break
			}
			if err != nil {
				r.logger.Warn("Failed to read Parquet record", zap.Error(err))
				report.Skipped++
				continue
			}

			if r.validateExample(&example) {
				e := example
				batch = append(batch, &e)
			} else {
				report.Skipped++
			}
		}

		return batch, nil
	}, report)
}

// evaluateJSON evaluates JSON files (one JSON object per line)
func (r *Runner) evaluateJSON(ctx context.Context, filePath string, report *Report) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return r.evaluateBatches(ctx, func() ([]*Example, error) {
		var batch []*Example

		for len(batch) < r.config.BatchSize {
			var example Example
			err := decoder.Decode(&example)
			if err == io.EOF {
				break
			}
			if err != nil {
				return batch, fmt.Errorf("failed to decode JSON record: %w", err)
			}

			if r.validateExample(&example) {
				e := example
				batch = append(batch, &e)
			} else {
				report.Skipped++
			}
		}

		return batch, nil
	}, report)
}

// evaluateBatches drains the reader function and classifies each example
func (r *Runner) evaluateBatches(ctx context.Context, readBatch func() ([]*Example, error), report *Report) error {
	opts := zeroshot.Options{
		CandidateLabels:    r.config.CandidateLabels,
		HypothesisTemplate: r.config.HypothesisTemplate,
		MultiLabel:         r.config.MultiLabel,
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, example := range batch {
			if r.config.Limit > 0 && report.TotalExamples >= r.config.Limit {
				return nil
			}

			result, err := r.classifier.Classify(ctx, example.Text, opts)
			if err != nil {
				report.TotalExamples++
				report.Failed++
				report.Errors = append(report.Errors, err.Error())
				r.logger.Warn("Classification failed during evaluation", zap.Error(err))
				continue
			}

			report.TotalExamples++
			if strings.EqualFold(result.Top(), example.Label) {
				report.Correct++
			}

			if report.TotalExamples%int64(r.config.ProgressReport) == 0 {
				r.logger.Info("Evaluation progress",
					zap.Int64("examples", report.TotalExamples),
					zap.Int64("correct", report.Correct),
					zap.Float64("running_accuracy", float64(report.Correct)/float64(report.TotalExamples)))
			}
		}
	}

	return nil
}

// validateExample checks that an example has usable text and label
func (r *Runner) validateExample(example *Example) bool {
	if !r.config.ValidateData {
		return true
	}

	if strings.TrimSpace(example.Text) == "" {
		r.logger.Debug("Invalid example: empty text")
		return false
	}
	if strings.TrimSpace(example.Label) == "" {
		r.logger.Debug("Invalid example: empty label")
		return false
	}
	if len(example.Text) > 10000 {
		r.logger.Debug("Invalid example: text too long", zap.Int("length", len(example.Text)))
		return false
	}

	return true
}
