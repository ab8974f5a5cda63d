package zeroshot

import (
	"testing"

	"github.com/sugarme/tokenizer"
)

func TestPadBatch(t *testing.T) {
	encodings := []*tokenizer.Encoding{
		{Ids: []int{101, 2054, 102}, TypeIds: []int{0, 0, 0}},
		{Ids: []int{101, 2054, 2003, 2023, 102}, TypeIds: []int{0, 0, 1, 1, 1}},
	}

	batch := padBatch(encodings)

	if batch.SeqLen != 5 {
		t.Fatalf("Expected seq len 5, got %d", batch.SeqLen)
	}
	if batch.Size() != 2 {
		t.Fatalf("Expected batch size 2, got %d", batch.Size())
	}

	// Short row is right-padded with zeros and a zeroed attention mask.
	wantIDs := []int64{101, 2054, 102, 0, 0}
	wantMask := []int64{1, 1, 1, 0, 0}
	for i := range wantIDs {
		if batch.InputIDs[0][i] != wantIDs[i] {
			t.Errorf("InputIDs[0][%d] = %d, want %d", i, batch.InputIDs[0][i], wantIDs[i])
		}
		if batch.AttentionMask[0][i] != wantMask[i] {
			t.Errorf("AttentionMask[0][%d] = %d, want %d", i, batch.AttentionMask[0][i], wantMask[i])
		}
	}

	// Full row keeps its type IDs (hypothesis segment = 1).
	if batch.TokenTypeIDs[1][3] != 1 {
		t.Errorf("Expected type ID 1 for hypothesis token, got %d", batch.TokenTypeIDs[1][3])
	}
	for i := 0; i < 5; i++ {
		if batch.AttentionMask[1][i] != 1 {
			t.Errorf("AttentionMask[1][%d] = %d, want 1", i, batch.AttentionMask[1][i])
		}
	}
}
