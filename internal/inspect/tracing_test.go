package inspect

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return spans
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]any {
	out := make(map[string]any)
	for _, kv := range span.Attributes() {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestTracingInterceptorAnnotatesSimulationTick(t *testing.T) {
	spans := recordSpans(t)
	world := newTestWorld(t)
	svc := NewWorldService(world, nil)

	intercept := TracingUnaryServerInterceptor(world)
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/GetWorld"}
	_, err := intercept(context.Background(), &emptypb.Empty{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return svc.GetWorld(ctx, req.(*emptypb.Empty))
	})
	if err != nil {
		t.Fatalf("GetWorld: %v", err)
	}

	byName := make(map[string]map[string]any)
	for _, s := range spans.Ended() {
		byName[s.Name()] = spanAttrs(s)
	}
	server, ok := byName["Inspect/GetWorld"]
	if !ok {
		t.Fatalf("no server span in %v", byName)
	}
	if server["sim.tick"] != int64(100) || server["rpc.method"] != "GetWorld" {
		t.Fatalf("server span attrs = %v", server)
	}
	snapshot, ok := byName["Inspect/snapshot"]
	if !ok {
		t.Fatalf("no snapshot span in %v", byName)
	}
	if snapshot["sim.tick"] != int64(100) || snapshot["sim.entities"] != int64(4) || snapshot["sim.pending_actions"] != int64(4) {
		t.Fatalf("snapshot span attrs = %v", snapshot)
	}
}

func TestTracingInterceptorWithoutClock(t *testing.T) {
	spans := recordSpans(t)

	intercept := TracingUnaryServerInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/GetTick"}
	if _, err := intercept(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("intercept: %v", err)
	}

	ended := spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("spans = %d, want 1", len(ended))
	}
	if _, ok := spanAttrs(ended[0])["sim.tick"]; ok {
		t.Fatalf("span without a clock should not carry sim.tick")
	}
}
