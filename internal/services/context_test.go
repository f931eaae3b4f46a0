package services_test

import (
	"context"
	"testing"

	"memento/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithItemKey(ctx, "2023-01-01 10:00:00 UTC")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if key, ok := services.ItemKeyFromContext(ctx); !ok || key != "2023-01-01 10:00:00 UTC" {
		t.Fatalf("unexpected item key: %v %v", key, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithItemKey(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ItemKeyFromContext(ctx); ok {
		t.Fatal("expected no item key value")
	}
}
