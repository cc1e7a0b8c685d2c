package intent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Unknown is returned when no prototype clears the similarity threshold.
const Unknown = "unknown"

// DefaultThreshold is the minimum cosine similarity for a confident match.
const DefaultThreshold = 0.38

// Classification is the classifier's only output shape.
type Classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

type protoVectors struct {
	name string
	vecs [][]float32
}

// Classifier maps free text to the nearest prototype intent. It holds no
// per-request state; the prototype embeddings are computed once and shared
// read-only across concurrent calls.
type Classifier struct {
	embedder  Embedder
	threshold float64

	mu     sync.Mutex
	warmed bool
	protos []protoVectors
}

func NewClassifier(embedder Embedder, threshold float64) *Classifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Classifier{embedder: embedder, threshold: threshold}
}

// Warm embeds the prototype table. Idempotent and safe for concurrent
// callers; a failed warm is retried on the next call so a transient backend
// outage at startup does not wedge the classifier.
func (c *Classifier) Warm(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warmed {
		return nil
	}
	protos := make([]protoVectors, 0, len(prototypes))
	for _, p := range prototypes {
		vecs := make([][]float32, 0, len(p.phrases))
		for _, phrase := range p.phrases {
			v, err := c.embedder.Embed(ctx, phrase)
			if err != nil {
				return fmt.Errorf("embed prototype %q: %w", phrase, err)
			}
			vecs = append(vecs, v)
		}
		protos = append(protos, protoVectors{name: p.name, vecs: vecs})
	}
	c.protos = protos
	c.warmed = true
	return nil
}

// Classify maps text to an intent label with a confidence in [0,1]. It never
// fails: an embedding error or timeout degrades to the unknown intent with
// zero confidence. An intent matches when any of its prototype phrasings is
// close; the globally best score wins, with a strict comparison so exact ties
// resolve to the first-declared intent.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if err := c.Warm(ctx); err != nil {
		return Classification{Intent: Unknown}
	}
	q, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return Classification{Intent: Unknown}
	}

	best := Unknown
	bestScore := 0.0
	for _, p := range c.protos {
		for _, v := range p.vecs {
			if s := Cosine(q, v); s > bestScore {
				bestScore, best = s, p.name
			}
		}
	}
	if bestScore > 1 {
		bestScore = 1
	}

	if bestScore >= c.threshold {
		return Classification{Intent: best, Confidence: bestScore}
	}
	if looksLikeAdminOverride(text) {
		return Classification{Intent: AdminOverride, Confidence: bestScore}
	}
	return Classification{Intent: Unknown, Confidence: bestScore}
}

func looksLikeAdminOverride(text string) bool {
	t := strings.ToLower(text)
	triggered := false
	for _, a := range adminTriggers {
		if strings.Contains(t, a) {
			triggered = true
			break
		}
	}
	if !triggered {
		return false
	}
	for _, p := range privilegedOps {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
