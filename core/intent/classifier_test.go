package intent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(NewHashingEmbedder(0), DefaultThreshold)
}

func TestClassifyPrototypePhraseMatchesItself(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify(context.Background(), "salary spreadsheet")
	if res.Intent != "retrieve_hr_payroll" {
		t.Fatalf("unexpected intent: %#v", res)
	}
	if res.Confidence < 0.999 {
		t.Fatalf("exact prototype match should score 1.0, got %v", res.Confidence)
	}
}

func TestClassifyParaphraseAboveThreshold(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify(context.Background(), "share the salary spreadsheet for 2024")
	if res.Intent != "retrieve_hr_payroll" {
		t.Fatalf("unexpected intent: %#v", res)
	}
	if res.Confidence < DefaultThreshold || res.Confidence > 1 {
		t.Fatalf("confidence out of expected range: %v", res.Confidence)
	}
}

func TestClassifyUnrelatedTextFallsBackToUnknown(t *testing.T) {
	c := newTestClassifier(t)
	res := c.Classify(context.Background(), "good morning sunshine")
	if res.Intent != Unknown {
		t.Fatalf("unexpected intent: %#v", res)
	}
	if res.Confidence < 0 || res.Confidence >= DefaultThreshold {
		t.Fatalf("unexpected confidence: %v", res.Confidence)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	c := newTestClassifier(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		res := c.Classify(context.Background(), text)
		if res.Intent != Unknown || res.Confidence != 0 {
			t.Fatalf("text %q: expected unknown with zero confidence, got %#v", text, res)
		}
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := newTestClassifier(t)
	inputs := []string{
		"what is the company leave policy",
		"fix this bug",
		"quarterly revenue numbers",
		"completely unrelated gibberish",
		"",
	}
	for _, text := range inputs {
		res := c.Classify(context.Background(), text)
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Fatalf("text %q: confidence %v out of [0,1]", text, res.Confidence)
		}
	}
}

func TestLexicalOverrideFallback(t *testing.T) {
	c := newTestClassifier(t)
	// Low token overlap with every prototype, but pairs an admin trigger
	// with a privileged operation.
	res := c.Classify(context.Background(), "superuser veto, expunge the remuneration csv")
	if res.Intent != AdminOverride {
		t.Fatalf("expected admin_override via lexical fallback, got %#v", res)
	}
	if res.Confidence >= DefaultThreshold {
		t.Fatalf("fallback should only fire below threshold, got %v", res.Confidence)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("backend down")
}

func TestEmbeddingFailureDegradesToUnknown(t *testing.T) {
	c := NewClassifier(failingEmbedder{}, DefaultThreshold)
	res := c.Classify(context.Background(), "salary spreadsheet")
	if res.Intent != Unknown || res.Confidence != 0 {
		t.Fatalf("expected degraded unknown, got %#v", res)
	}
}

type countingEmbedder struct {
	inner Embedder
	calls atomic.Int64
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.inner.Embed(ctx, text)
}

func TestWarmRunsOnce(t *testing.T) {
	counting := &countingEmbedder{inner: NewHashingEmbedder(0)}
	c := NewClassifier(counting, DefaultThreshold)

	if err := c.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	after := counting.calls.Load()
	if after == 0 {
		t.Fatalf("warm should embed prototypes")
	}
	if err := c.Warm(context.Background()); err != nil {
		t.Fatalf("second warm: %v", err)
	}
	if counting.calls.Load() != after {
		t.Fatalf("second warm must not re-embed prototypes")
	}
}

type flakyEmbedder struct {
	failures int
	inner    Embedder
}

func (e *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.failures > 0 {
		e.failures--
		return nil, errors.New("transient")
	}
	return e.inner.Embed(ctx, text)
}

func TestWarmRetriesAfterFailure(t *testing.T) {
	c := NewClassifier(&flakyEmbedder{failures: 1, inner: NewHashingEmbedder(0)}, DefaultThreshold)
	if err := c.Warm(context.Background()); err == nil {
		t.Fatalf("expected first warm to fail")
	}
	if err := c.Warm(context.Background()); err != nil {
		t.Fatalf("expected second warm to recover: %v", err)
	}
}

func TestNewClassifierRejectsBadThreshold(t *testing.T) {
	c := NewClassifier(NewHashingEmbedder(0), -1)
	if c.threshold != DefaultThreshold {
		t.Fatalf("expected default threshold, got %v", c.threshold)
	}
}
