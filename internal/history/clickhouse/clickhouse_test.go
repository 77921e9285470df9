package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/docstack/veristack/internal/history"
)

func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	return clickHouseContainer, host + ":" + port.Port()
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink, err := New(addr, "verification_runs")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	err = sink.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS verification_runs (
			started_at DateTime64(6),
			finished_at DateTime64(6),
			total UInt32,
			passed UInt32,
			failed UInt32,
			success_rate Float64,
			probes String
		) ENGINE = MergeTree() ORDER BY started_at`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	run := history.Run{
		StartedAt:   time.Now().UTC().Add(-time.Second),
		FinishedAt:  time.Now().UTC(),
		Total:       4,
		Passed:      3,
		Failed:      1,
		SuccessRate: 75,
		Probes: []history.ProbeRecord{
			{Name: "store_document", Success: false, Message: "backend down", DurationMS: 1.0},
		},
	}
	if err := sink.Record(ctx, run); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	var count uint64
	row := sink.conn.QueryRow(ctx, "SELECT COUNT(*) FROM verification_runs")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to scan count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 run in history, got %d", count)
	}
}
