package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoCarriesComponentAndFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Info("gateway", "request handled", "status", 200)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "GATEWAY" {
		t.Fatalf("unexpected logger name: %s", entries[0].LoggerName)
	}
	if entries[0].Message != "request handled" {
		t.Fatalf("unexpected message: %s", entries[0].Message)
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(200) {
		t.Fatalf("unexpected fields: %#v", fields)
	}
}

func TestOddFieldCountDoesNotPanic(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Error("policy", "reload failed", "path")

	if logs.Len() != 1 {
		t.Fatalf("expected entry despite odd field count")
	}
}
