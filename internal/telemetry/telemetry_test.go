package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestProviderTagsService(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewProvider(recorder, "1.2.3")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "work")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	found := false
	for _, kv := range spans[0].Resource().Attributes() {
		if kv.Key == semconv.ServiceNameKey && kv.Value.AsString() == ServiceName {
			found = true
		}
	}
	if !found {
		t.Errorf("expected service.name=%s on resource", ServiceName)
	}
}
