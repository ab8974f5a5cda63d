package history

import "time"

// Record is one audited classification call. Input text is stored only
// as a hash; the ranked labels and scores are stored as JSON.
type Record struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"request_id"`
	TextHash   string    `db:"text_hash" json:"text_hash"`
	TopLabel   string    `db:"top_label" json:"top_label"`
	Ranking    string    `db:"ranking" json:"ranking"`
	MultiLabel bool      `db:"multi_label" json:"multi_label"`
	CacheHit   bool      `db:"cache_hit" json:"cache_hit"`
	DurationMS float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes the stored history.
type Stats struct {
	TotalRecords int64   `db:"total_records" json:"total_records"`
	CacheHits    int64   `db:"cache_hits" json:"cache_hits"`
	AvgDuration  float64 `db:"avg_duration" json:"avg_duration_ms"`
}
