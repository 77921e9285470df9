package factory

import (
	"context"
	"testing"
	"time"

	"github.com/docstack/veristack/internal/history"
)

func TestNewSinkFromDSNSQLite(t *testing.T) {
	sink, err := NewSinkFromDSN("sqlite://:memory:")
	if err != nil {
		t.Fatalf("sqlite dsn: %v", err)
	}
	defer func() { _ = sink.Close() }()
	run := history.Run{StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC(), Total: 1, Passed: 1, SuccessRate: 100}
	if err := sink.Record(context.Background(), run); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestNewSinkFromDSNImplicitSQLitePath(t *testing.T) {
	sink, err := NewSinkFromDSN(":memory:")
	if err != nil {
		t.Fatalf("implicit sqlite dsn: %v", err)
	}
	_ = sink.Close()
}

func TestNewSinkFromDSNOpenSearch(t *testing.T) {
	sink, err := NewSinkFromDSN("opensearch://localhost:9200/my-index")
	if err != nil {
		t.Fatalf("opensearch dsn: %v", err)
	}
	_ = sink.Close()
}

func TestNewSinkFromDSNErrors(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
	if _, err := NewSinkFromDSN("redis://localhost:6379"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}
