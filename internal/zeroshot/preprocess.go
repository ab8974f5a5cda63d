package zeroshot

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// templateSlot is the substitution marker inside a hypothesis template.
const templateSlot = "{}"

// Preprocessor turns an input text and candidate labels into one
// premise/hypothesis model input per label.
type Preprocessor interface {
	Prepare(text string, labels []string, template string) (*EncodedBatch, error)
}

// ExpandTemplate substitutes the label into the template's single "{}"
// slot.
func ExpandTemplate(template, label string) string {
	return strings.Replace(template, templateSlot, label, 1)
}

// NLIPreprocessor encodes premise/hypothesis sequence pairs with a
// HuggingFace tokenizer.json loaded from the model directory.
type NLIPreprocessor struct {
	tk     *tokenizer.Tokenizer
	logger *zap.Logger
}

// NewNLIPreprocessor loads tokenizer.json from modelDir and configures
// pair truncation to maxLength tokens.
func NewNLIPreprocessor(modelDir string, maxLength int, logger *zap.Logger) (*NLIPreprocessor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLength <= 0 {
		maxLength = 512
	}

	tkPath := filepath.Join(modelDir, "tokenizer.json")
	tk, err := pretrained.FromFile(tkPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer %s: %w", tkPath, err)
	}

	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLength,
		Strategy:  tokenizer.LongestFirst,
	})

	logger.Info("Tokenizer loaded",
		zap.String("path", tkPath),
		zap.Int("max_length", maxLength))

	return &NLIPreprocessor{tk: tk, logger: logger}, nil
}

// Prepare encodes one premise/hypothesis pair per candidate label and
// pads the batch to a uniform sequence length.
func (p *NLIPreprocessor) Prepare(text string, labels []string, template string) (*EncodedBatch, error) {
	encodings := make([]*tokenizer.Encoding, len(labels))
	for i, label := range labels {
		hypothesis := ExpandTemplate(template, label)
		input := tokenizer.NewDualEncodeInput(
			tokenizer.NewInputSequence(text),
			tokenizer.NewInputSequence(hypothesis),
		)
		en, err := p.tk.Encode(input, true)
		if err != nil {
			return nil, fmt.Errorf("%w: label %q: %v", ErrTokenization, label, err)
		}
		encodings[i] = en
	}
	return padBatch(encodings), nil
}

// padBatch right-pads every encoding to the longest sequence in the
// batch, extending the attention mask with zeros.
func padBatch(encodings []*tokenizer.Encoding) *EncodedBatch {
	seqLen := 0
	for _, en := range encodings {
		if len(en.Ids) > seqLen {
			seqLen = len(en.Ids)
		}
	}

	batch := &EncodedBatch{
		InputIDs:      make([][]int64, len(encodings)),
		AttentionMask: make([][]int64, len(encodings)),
		TokenTypeIDs:  make([][]int64, len(encodings)),
		SeqLen:        seqLen,
	}
	for i, en := range encodings {
		ids := make([]int64, seqLen)
		mask := make([]int64, seqLen)
		types := make([]int64, seqLen)
		for j, id := range en.Ids {
			ids[j] = int64(id)
			mask[j] = 1
		}
		for j, tid := range en.TypeIds {
			if j < seqLen {
				types[j] = int64(tid)
			}
		}
		batch.InputIDs[i] = ids
		batch.AttentionMask[i] = mask
		batch.TokenTypeIDs[i] = types
	}
	return batch
}
