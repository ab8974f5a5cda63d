package eval

import (
	"time"
)

// Example represents a single labeled example from the input dataset
type Example struct {
	Text  string `csv:"text" parquet:"text" json:"text"`
	Label string `csv:"label" parquet:"label" json:"label"`
}

// Report represents the result of evaluating a dataset
type Report struct {
	TotalExamples int64         `json:"total_examples"`
	Correct       int64         `json:"correct"`
	Failed        int64         `json:"failed"`
	Skipped       int64         `json:"skipped"`
	Accuracy      float64       `json:"accuracy"`
	Duration      time.Duration `json:"duration"`
	AvgLatency    time.Duration `json:"avg_latency"`
	Errors        []string      `json:"errors,omitempty"`
}

// Config contains evaluation run configuration
type Config struct {
	CandidateLabels    []string `yaml:"candidate_labels" mapstructure:"candidate_labels"`
	HypothesisTemplate string   `yaml:"hypothesis_template" mapstructure:"hypothesis_template"`
	MultiLabel         bool     `yaml:"multi_label" mapstructure:"multi_label"`
	BatchSize          int      `yaml:"batch_size" mapstructure:"batch_size"`           // 100
	ValidateData       bool     `yaml:"validate_data" mapstructure:"validate_data"`     // true
	ProgressReport     int      `yaml:"progress_report" mapstructure:"progress_report"` // 100
	Limit              int64    `yaml:"limit" mapstructure:"limit"`                     // 0 = all
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case len(filename) >= 4 && filename[len(filename)-4:] == ".csv":
		return FormatCSV
	case len(filename) >= 8 && filename[len(filename)-8:] == ".parquet":
		return FormatParquet
	case len(filename) >= 5 && filename[len(filename)-5:] == ".json":
		return FormatJSON
	default:
		return FormatCSV // Default to CSV
	}
}
