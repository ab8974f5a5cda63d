package cache

import (
	"testing"

	"github.com/labelsmith/labelsmith/internal/zeroshot"
)

func TestKey(t *testing.T) {
	c := &ResultCache{config: &Config{KeyPrefix: "test"}}

	base := zeroshot.Options{
		CandidateLabels:    []string{"sports", "politics"},
		HypothesisTemplate: "{}",
	}

	t.Run("Deterministic", func(t *testing.T) {
		k1 := c.Key("model-a", "some text", base)
		k2 := c.Key("model-a", "some text", base)
		if k1 != k2 {
			t.Errorf("Same inputs produced different keys: %s vs %s", k1, k2)
		}
	})

	t.Run("SensitiveToEveryInput", func(t *testing.T) {
		ref := c.Key("model-a", "some text", base)

		multi := base
		multi.MultiLabel = true
		tpl := base
		tpl.HypothesisTemplate = "This example is {}."
		labels := base
		labels.CandidateLabels = []string{"sports"}

		variants := []string{
			c.Key("model-b", "some text", base),
			c.Key("model-a", "other text", base),
			c.Key("model-a", "some text", multi),
			c.Key("model-a", "some text", tpl),
			c.Key("model-a", "some text", labels),
		}
		for i, k := range variants {
			if k == ref {
				t.Errorf("Variant %d collided with reference key", i)
			}
		}
	})

	t.Run("LabelBoundaryAmbiguity", func(t *testing.T) {
		a := base
		a.CandidateLabels = []string{"ab", "c"}
		b := base
		b.CandidateLabels = []string{"a", "bc"}
		if c.Key("m", "text", a) == c.Key("m", "text", b) {
			t.Error("Label concatenation is ambiguous across boundaries")
		}
	})
}
