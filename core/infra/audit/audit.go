// Package audit records every guard decision to append-only sinks. Records
// never include prompt text, only its length; free-text fields are masked
// before they leave the process.
package audit

import (
	"context"
	"errors"
	"time"
)

// Record is one audit entry per guarded request.
type Record struct {
	RequestID     string            `json:"request_id"`
	TS            string            `json:"ts"`
	Role          string            `json:"role"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Intent        string            `json:"intent"`
	Confidence    float64           `json:"confidence"`
	Allowed       bool              `json:"allowed"`
	Reason        string            `json:"reason"`
	Resources     []string          `json:"resources,omitempty"`
	BreakGlass    bool              `json:"break_glass"`
	ClassifyMS    float64           `json:"t_intent_ms"`
	EvaluateMS    float64           `json:"t_policy_ms"`
	LatencyMS     float64           `json:"latency_ms"`
	PromptChars   int               `json:"prompt_chars"`
	PolicyVersion string            `json:"policy_version"`
}

// Stamp sets the record timestamp to now in UTC, second precision.
func (r *Record) Stamp() {
	r.TS = time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Sink is an append-only destination for audit records.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Noop discards every record.
type Noop struct{}

func (Noop) Append(context.Context, Record) error { return nil }
func (Noop) Close() error                         { return nil }

// Fanout appends to every configured sink and joins their errors, so one
// failing sink never starves the others.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
