package overlay_test

import (
	"context"
	"errors"
	"testing"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/pkg/activity"
	"github.com/goliatone/go-overlay/pkg/store"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })
	ov := mustNew(t, store.NewMemory(), overlay.WithActivityHooks(activity.Hooks{nil, hook}))

	hooks := ov.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}
	hooks[0] = nil
	if again := ov.ActivityHooks(); len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
	if hooks := mustNew(t, store.NewMemory()).ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestOverrideWritesEmitActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	ov := mustNew(t, store.FromValue(map[string]any{"db": map[string]any{"port": 5432}}),
		overlay.WithActivityHooks(activity.Hooks{capture}),
		overlay.WithScope(overlay.NewScope("tenant", overlay.ScopePriorityTenant,
			overlay.WithScopeMetadata(map[string]any{"tenant_id": "acme"}))),
	)

	ov.Set("db.port", 6000)
	ov.Delete("db.port")
	ov.Set("feature", true)
	ov.Clear()

	events := capture.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	set := events[0]
	if set.Verb != activity.VerbOverrideSet || set.ObjectID != "db.port" || set.Channel != activity.DefaultChannel {
		t.Fatalf("unexpected set event %+v", set)
	}
	if set.Metadata["new_value"] != 6000 || set.Metadata["source"] != "override" {
		t.Fatalf("unexpected set metadata %+v", set.Metadata)
	}
	if _, ok := set.Metadata["old_value"]; ok {
		t.Fatalf("expected no old value on first set, got %+v", set.Metadata)
	}
	if set.Metadata["scope_name"] != "tenant" {
		t.Fatalf("expected scope metadata, got %+v", set.Metadata)
	}

	deleted := events[1]
	if deleted.Verb != activity.VerbOverrideDeleted || deleted.Metadata["old_value"] != 6000 {
		t.Fatalf("unexpected delete event %+v", deleted)
	}
	if deleted.Metadata["new_value"] != 5432 || deleted.Metadata["source"] != "store" {
		t.Fatalf("expected store fallthrough in delete metadata, got %+v", deleted.Metadata)
	}

	cleared := events[3]
	if cleared.Verb != activity.VerbOverrideDeleted || cleared.ObjectID != "feature" {
		t.Fatalf("unexpected clear event %+v", cleared)
	}
	if _, ok := cleared.Metadata["source"]; ok {
		t.Fatalf("expected no source when nothing is visible, got %+v", cleared.Metadata)
	}
}

func TestActivityFailuresAreLoggedNotReturned(t *testing.T) {
	boom := errors.New("sink down")
	var logged []overlay.ChangeLogEvent
	ov := mustNew(t, store.NewMemory(),
		overlay.WithActivityHooks(activity.Hooks{&activity.CaptureHook{Err: boom}}),
		overlay.WithChangeLogger(overlay.ChangeLoggerFunc(func(event overlay.ChangeLogEvent) {
			logged = append(logged, event)
		})),
	)

	ov.Set("a", 1)

	if fragment, ok := ov.Get("a"); !ok || fragment.Value != 1 {
		t.Fatalf("expected write to succeed despite hook failure")
	}
	for _, event := range logged {
		if event.Op == overlay.LogOpActivity && errors.Is(event.Err, boom) {
			return
		}
	}
	t.Fatalf("expected activity failure logged, got %+v", logged)
}

func TestActivityConfigDisables(t *testing.T) {
	capture := &activity.CaptureHook{}
	ov := mustNew(t, store.NewMemory(),
		overlay.WithActivityHooks(activity.Hooks{capture}),
		overlay.WithActivityConfig(activity.Config{Enabled: false}),
	)
	ov.Set("a", 1)
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events when disabled")
	}

	custom := mustNew(t, store.NewMemory(),
		overlay.WithActivityHooks(activity.Hooks{capture}),
		overlay.WithActivityConfig(activity.Config{Enabled: true, Channel: "config-audit"}),
	)
	custom.Set("a", 1)
	if events := capture.Events(); len(events) != 1 || events[0].Channel != "config-audit" {
		t.Fatalf("expected custom channel, got %+v", events)
	}
}
