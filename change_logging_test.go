package overlay_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/pkg/store"
)

func TestChangeLoggerRecordsForwardingDecisions(t *testing.T) {
	var events []overlay.ChangeLogEvent
	base := store.NewMemory()
	ov := mustNew(t, base, overlay.WithChangeLogger(overlay.ChangeLoggerFunc(func(event overlay.ChangeLogEvent) {
		events = append(events, event)
	})))

	ov.Set("a", 1)
	base.Set("a", 2)
	base.Set("b", 3)

	var forwarded []bool
	for _, event := range events {
		if event.Op == overlay.LogOpStoreChange {
			forwarded = append(forwarded, event.Forwarded)
		}
	}
	if len(forwarded) != 2 || forwarded[0] || !forwarded[1] {
		t.Fatalf("expected a swallowed and b forwarded, got %v", forwarded)
	}
	if events[0].Op != overlay.LogOpSet || events[0].Key != "a" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
}

func TestSlogChangeLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ov := mustNew(t, store.NewMemory(),
		overlay.WithChangeLogger(overlay.NewSlogChangeLogger(logger)),
		overlay.WithScope(overlay.NewScope("tenant", 1)),
	)
	ov.Set("db.port", 6000)

	out := buf.String()
	for _, want := range []string{"op=set", "key=db.port", "scope=tenant"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log output %q", want, out)
		}
	}
}

func TestSlogEvaluatorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ov := mustNew(t, store.FromValue(map[string]any{"a": 1}),
		overlay.WithEvaluatorLogger(overlay.NewSlogEvaluatorLogger(logger)))

	if _, err := ov.Evaluate("a + 1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	_, _ = ov.Evaluate("a +")

	out := buf.String()
	if !strings.Contains(out, "engine=expr") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("unexpected log output %q", out)
	}
}
