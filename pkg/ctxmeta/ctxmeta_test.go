package ctxmeta_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Gunvolt24/cnshell/pkg/ctxmeta"
)

func TestRequestID_PutAndGet(t *testing.T) {
	parent := context.Background()

	ctx := ctxmeta.WithRequestID(parent, "req-123")
	got, ok := ctxmeta.RequestIDFromContext(ctx)
	if !ok || got != "req-123" {
		t.Fatalf("want ok=true, id=req-123; got ok=%v id=%q", ok, got)
	}

	// родитель не должен содержать request_id
	if _, parentOk := ctxmeta.RequestIDFromContext(parent); parentOk {
		t.Fatalf("parent context must not contain request_id")
	}
	if ctxmeta.WithRequestID(parent, "") != parent {
		t.Fatalf("WithRequestID with empty id must return the same ctx")
	}
}

func TestSource_PutAndGet(t *testing.T) {
	ctx := ctxmeta.WithSource(context.Background(), "Probe")
	if src, ok := ctxmeta.SourceFromContext(ctx); !ok || src != "Probe" {
		t.Fatalf("want Probe, got %q ok=%v", src, ok)
	}

	// источник и request_id не пересекаются
	if _, ok := ctxmeta.RequestIDFromContext(ctx); ok {
		t.Fatalf("source must not be visible as request_id")
	}

	ctx = ctxmeta.WithRequestID(ctx, "r-1")
	if got := ctxmeta.LogPrefix(ctx); got != "src=Probe rid=r-1" {
		t.Fatalf("LogPrefix=%q", got)
	}
}

func TestNilContext(t *testing.T) {
	var ctx context.Context
	if ctxmeta.WithRequestID(ctx, "x") != nil || ctxmeta.WithSource(ctx, "x") != nil {
		t.Fatalf("nil ctx must stay nil")
	}
	if _, ok := ctxmeta.RequestIDFromContext(ctx); ok {
		t.Fatalf("nil ctx has no request_id")
	}
	if ctxmeta.LogPrefix(ctx) != "" {
		t.Fatalf("nil ctx has no prefix")
	}
}

func TestValidRequestID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"abc-123", true},
		{"0f8fad5b-d9cb-469f-a165-70867728950e", true},
		{"with space", false},
		{"tab\there", false},
		{"юникод", false},
		{strings.Repeat("a", ctxmeta.MaxRequestIDLen), true},
		{strings.Repeat("a", ctxmeta.MaxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		if got := ctxmeta.ValidRequestID(tc.id); got != tc.want {
			t.Fatalf("ValidRequestID(%q)=%v, want %v", tc.id, got, tc.want)
		}
	}
}
