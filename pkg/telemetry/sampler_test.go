package telemetry

import (
	"context"
	"math"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestSampler_Bounds(t *testing.T) {
	tid := trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	cases := []struct {
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{ratio: -1, want: sdktrace.Drop},
		{ratio: 0, want: sdktrace.Drop},
		{ratio: math.NaN(), want: sdktrace.Drop},
		{ratio: 1, want: sdktrace.RecordAndSample},
		{ratio: 7, want: sdktrace.RecordAndSample},
	}
	for _, tc := range cases {
		res := sampler(tc.ratio).ShouldSample(sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: tid, Name: "op"})
		if res.Decision != tc.want {
			t.Fatalf("ratio %v: got %v want %v", tc.ratio, res.Decision, tc.want)
		}
	}
}

func TestServiceResource_DefaultName(t *testing.T) {
	res := serviceResource("", "")
	v, ok := res.Set().Value("service.name")
	if !ok || v.AsString() != defaultServiceName {
		t.Fatalf("service.name: got %q", v.AsString())
	}
	if _, ok := res.Set().Value("service.version"); ok {
		t.Fatalf("service.version must be absent without version")
	}
}
