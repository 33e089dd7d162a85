package telemetry_test

import (
	"context"
	"testing"

	"github.com/osmaviation/spreadsheet/internal/config"
	"github.com/osmaviation/spreadsheet/internal/telemetry"
)

func TestSetup_NoopWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), config.TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_ShutdownFlushesCleanly(t *testing.T) {
	// Non-routable address so nothing is exported.
	cfg := config.TracingConfig{Endpoint: "http://192.0.2.1:4318", ServiceName: "flush-test"}

	shutdown, err := telemetry.Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
