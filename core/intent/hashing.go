package intent

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultHashDim = 256

// HashingEmbedder maps token counts into a fixed-width vector via feature
// hashing. Fully deterministic and dependency-free: it backs reproducible
// tests and stands in for a real sentence-embedding model when none is
// configured. Similarity then reduces to token overlap, which is enough for
// the prototype phrases to anchor their intents.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = defaultHashDim
	}
	return &HashingEmbedder{dim: dim}
}

func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	return Normalize(vec), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
