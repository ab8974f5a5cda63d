package zeroshot

// Positions of the NLI classes within a model's 3-way output logits.
// These are a property of the underlying model's label schema, not
// configuration: every supported NLI model orders its classes
// contradiction, neutral, entailment.
const (
	ContradictionID = 0
	NeutralID       = 1
	EntailmentID    = 2

	numNLIClasses = 3
)

// DefaultHypothesisTemplate uses each candidate label verbatim as the
// hypothesis sentence.
const DefaultHypothesisTemplate = "{}"

// Options are the per-call parameters for classification.
type Options struct {
	// CandidateLabels is the ordered set of labels to score. Required,
	// at least one element.
	CandidateLabels []string `json:"candidate_labels"`

	// HypothesisTemplate turns a label into an NLI hypothesis. Must
	// contain exactly one "{}" slot. Defaults to DefaultHypothesisTemplate.
	HypothesisTemplate string `json:"hypothesis_template,omitempty"`

	// MultiLabel scores each label as an independent binary
	// entailment-vs-contradiction decision instead of normalizing
	// probability mass across labels.
	MultiLabel bool `json:"multi_label,omitempty"`
}

// Result holds candidate labels reordered by descending score, with
// scores co-indexed to labels.
type Result struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Top returns the highest-scoring label, or "" for an empty result.
func (r *Result) Top() string {
	if r == nil || len(r.Labels) == 0 {
		return ""
	}
	return r.Labels[0]
}

// EncodedBatch is a tokenized premise/hypothesis pair batch ready for
// model inference. All rows are padded to SeqLen.
type EncodedBatch struct {
	InputIDs      [][]int64
	AttentionMask [][]int64
	TokenTypeIDs  [][]int64
	SeqLen        int
}

// Size returns the number of sequence pairs in the batch.
func (b *EncodedBatch) Size() int {
	return len(b.InputIDs)
}

// PipelineError is a typed error for pipeline failures.
type PipelineError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *PipelineError) Error() string {
	return e.Message
}

// Common error values.
var (
	ErrNoLabels       = &PipelineError{Type: "no_labels", Message: "must include at least one label", Code: 2001}
	ErrBadTemplate    = &PipelineError{Type: "bad_template", Message: "hypothesis template must contain exactly one {} slot", Code: 2002}
	ErrInvalidModel   = &PipelineError{Type: "invalid_model", Message: "model must be a loaded Model instance or a model path", Code: 2003}
	ErrModelNotLoaded = &PipelineError{Type: "model_not_loaded", Message: "model not loaded", Code: 2004}
	ErrModelOutput    = &PipelineError{Type: "model_output", Message: "malformed model output", Code: 2005}
	ErrTokenization   = &PipelineError{Type: "tokenization_failed", Message: "tokenization failed", Code: 2006}
	ErrNotNLIModel    = &PipelineError{Type: "not_nli_model", Message: "model label schema lacks entailment/contradiction classes", Code: 2007}
)
