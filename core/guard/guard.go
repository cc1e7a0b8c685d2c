package guard

import (
	"context"
	"strings"
	"time"

	"github.com/rolefirst/guardrail/core/infra/metrics"
	"github.com/rolefirst/guardrail/core/intent"
	"github.com/rolefirst/guardrail/core/policy"
)

// Result carries the full outcome of one guarded request: what the prompt was
// classified as, what policy decided and how long each stage took.
type Result struct {
	Decision       policy.Decision
	Classification intent.Classification
	ClassifyMS     float64
	EvaluateMS     float64
	PolicyVersion  string
}

// Guard composes the classifier and the policy store into the single
// decision pipeline the gateway calls for every prompt.
type Guard struct {
	classifier *intent.Classifier
	policies   *policy.Store
	metrics    metrics.Metrics
}

func New(classifier *intent.Classifier, policies *policy.Store, m metrics.Metrics) *Guard {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Guard{classifier: classifier, policies: policies, metrics: m}
}

// Warm precomputes prototype embeddings so the first real request does not
// pay the warmup cost.
func (g *Guard) Warm(ctx context.Context) error {
	return g.classifier.Warm(ctx)
}

// Check classifies the prompt and evaluates the active policy document
// against it. Evaluation is pure: the same prompt and identity against the
// same document always yields the same decision.
func (g *Guard) Check(ctx context.Context, rc policy.RequestContext, text string) Result {
	classifyStart := time.Now()
	cls := g.classifier.Classify(ctx, text)
	if nudged, ok := adminOverrideNudge(rc, text); ok {
		cls = nudged
	}
	classifyMS := float64(time.Since(classifyStart).Microseconds()) / 1000.0

	doc := g.policies.Current()

	evaluateStart := time.Now()
	dec := doc.Evaluate(rc, cls.Intent)
	evaluateMS := float64(time.Since(evaluateStart).Microseconds()) / 1000.0

	g.metrics.IncIntent(cls.Intent)
	g.metrics.IncDecision(dec.Reason, dec.Allowed)
	g.metrics.ObserveClassify(classifyMS / 1000.0)
	g.metrics.ObserveEvaluate(evaluateMS / 1000.0)

	return Result{
		Decision:       dec,
		Classification: cls,
		ClassifyMS:     classifyMS,
		EvaluateMS:     evaluateMS,
		PolicyVersion:  doc.Version,
	}
}

// overrideMarkers are the phrasings that, combined with a fully attributed
// admin identity, reroute a prompt onto the break-glass path even when the
// embedding score landed elsewhere.
var overrideMarkers = []string{"ignore", "override", "bypass"}

func adminOverrideNudge(rc policy.RequestContext, text string) (intent.Classification, bool) {
	if rc.Role != "admin" {
		return intent.Classification{}, false
	}
	if strings.TrimSpace(rc.Attributes["ticket_id"]) == "" ||
		strings.TrimSpace(rc.Attributes["justification"]) == "" {
		return intent.Classification{}, false
	}
	lower := strings.ToLower(text)
	for _, marker := range overrideMarkers {
		if strings.Contains(lower, marker) {
			return intent.Classification{Intent: intent.AdminOverride, Confidence: 1.0}, true
		}
	}
	return intent.Classification{}, false
}
