package observability

import (
	"context"
	"errors"
	"testing"
)

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{Enabled: false})
	if shutdown == nil {
		t.Fatalf("shutdown func must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc , broken, =x, tenant=t1 ")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "t1" {
		t.Fatalf("parseHeaders: got=%v", got)
	}
	if parseHeaders("  ") != nil {
		t.Fatalf("parseHeaders(blank): want nil")
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestSpanHelpersWithGlobalNoopProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "narrative.Test")
	if ctx == nil || span == nil {
		t.Fatalf("StartSpan returned nil")
	}
	EndSpan(span, errors.New("boom"))
}
