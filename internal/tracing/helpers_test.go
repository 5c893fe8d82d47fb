package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a span recorder as the global tracer provider for
// the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func singleSpan(t *testing.T, recorder *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	return spans[0]
}

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
		wantName  string
	}{
		{"profile lookup", "matching_profiles", DBOperationQuery, "query matching_profiles"},
		{"pool listing", "assignments", DBOperationQuery, "query assignments"},
		{"profile upsert", "matching_profiles", DBOperationInsert, "insert matching_profiles"},
		{"assignment close", "assignments", DBOperationUpdate, "update assignments"},
		{"assignment delete", "assignments", DBOperationDelete, "delete assignments"},
		{"migration", "", DBOperationExec, "exec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			span := singleSpan(t, recorder)
			if span.Name() != tt.wantName {
				t.Errorf("span name = %q, want %q", span.Name(), tt.wantName)
			}

			var gotSystem, gotOperation, gotTable string
			for _, attr := range span.Attributes() {
				switch attr.Key {
				case "db.system":
					gotSystem = attr.Value.AsString()
				case "db.operation":
					gotOperation = attr.Value.AsString()
				case "db.sql.table":
					gotTable = attr.Value.AsString()
				}
			}

			if gotSystem != "postgresql" {
				t.Errorf("db.system = %q, want postgresql", gotSystem)
			}
			if gotOperation != string(tt.operation) {
				t.Errorf("db.operation = %q, want %q", gotOperation, tt.operation)
			}
			if gotTable != tt.table {
				t.Errorf("db.sql.table = %q, want %q", gotTable, tt.table)
			}
		})
	}
}

func TestStartDBSpan_RecordsError(t *testing.T) {
	recorder := recordSpans(t)
	storeErr := errors.New("connection refused")

	_, endSpan := StartDBSpan(context.Background(), "assignments", DBOperationQuery)
	endSpan(storeErr)

	span := singleSpan(t, recorder)
	if span.Status().Code.String() != "Error" {
		t.Errorf("status = %s, want Error", span.Status().Code)
	}
	if span.Status().Description != storeErr.Error() {
		t.Errorf("status description = %q, want %q", span.Status().Description, storeErr)
	}
}

func TestStartSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, endSpan := StartSpan(context.Background(), "score_candidates")
	endSpan(nil)

	span := singleSpan(t, recorder)
	if span.Name() != "score_candidates" {
		t.Errorf("span name = %q, want score_candidates", span.Name())
	}
	// Unset is the default status for spans that end without error.
	if code := span.Status().Code.String(); code != "Unset" && code != "Ok" {
		t.Errorf("status = %s, want Unset or Ok", code)
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := recordSpans(t)

	_, endSpan := StartSpan(context.Background(), "score_candidates")
	endSpan(errors.New("ranking failed"))

	span := singleSpan(t, recorder)
	if span.Status().Code.String() != "Error" {
		t.Errorf("status = %s, want Error", span.Status().Code)
	}
}

func TestAddEvent(t *testing.T) {
	recorder := recordSpans(t)

	tracer := otel.Tracer("matchd")
	ctx, span := tracer.Start(context.Background(), "rank_pool")

	AddEvent(ctx, "pool_truncated",
		attribute.Int("pool_size", 2500),
		attribute.Int("max_pool_size", 1000),
	)
	span.End()

	events := singleSpan(t, recorder).Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "pool_truncated" {
		t.Errorf("event name = %q, want pool_truncated", events[0].Name)
	}
	if len(events[0].Attributes) != 2 {
		t.Errorf("expected 2 event attributes, got %d", len(events[0].Attributes))
	}
}

func TestSetAttributes(t *testing.T) {
	recorder := recordSpans(t)

	tracer := otel.Tracer("matchd")
	ctx, span := tracer.Start(context.Background(), "rank_pool")

	SetAttributes(ctx,
		attribute.String("profile.id", "profile-1"),
		attribute.Int("pool.size", 250),
	)
	span.End()

	var gotProfile string
	var gotPool int64
	for _, attr := range singleSpan(t, recorder).Attributes() {
		switch attr.Key {
		case "profile.id":
			gotProfile = attr.Value.AsString()
		case "pool.size":
			gotPool = attr.Value.AsInt64()
		}
	}

	if gotProfile != "profile-1" {
		t.Errorf("profile.id = %q, want profile-1", gotProfile)
	}
	if gotPool != 250 {
		t.Errorf("pool.size = %d, want 250", gotPool)
	}
}
