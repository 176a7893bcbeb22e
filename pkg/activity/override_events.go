package activity

import (
	"strings"
	"time"
)

// Verbs and object types used for overlay activity.
const (
	VerbOverrideSet     = "overlay.override.set"
	VerbOverrideDeleted = "overlay.override.deleted"

	ObjectTypeOverride = "overlay.override"
)

// ScopeContext captures the scope of the overlay that produced an event.
type ScopeContext struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// OverrideEventInput describes one override transition.
type OverrideEventInput struct {
	ActorID  string
	UserID   string
	TenantID string
	Channel  string
	Metadata map[string]any
	Path     string
	OldValue any
	NewValue any
	// Source is where the value visible after the transition comes from:
	// "override", "store", or empty when nothing is visible.
	Source     string
	Scope      ScopeContext
	OccurredAt time.Time
}

// BuildOverrideSetEvent builds the event for an override being written.
func BuildOverrideSetEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOverrideSet, input)
}

// BuildOverrideDeletedEvent builds the event for an override being removed
// by Delete or Clear.
func BuildOverrideDeletedEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOverrideDeleted, input)
}

func buildOverrideEvent(verb string, input OverrideEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.Scope.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["scope_name"] = input.Scope.Name
		metadata["scope_priority"] = input.Scope.Priority
		if input.Scope.Label != "" {
			metadata["scope_label"] = input.Scope.Label
		}
		if len(input.Scope.Metadata) > 0 {
			metadata["scope_metadata"] = cloneMap(input.Scope.Metadata)
		}
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	if input.Source != "" {
		metadata = ensureMetadata(metadata)
		metadata["source"] = input.Source
	}

	objectID := strings.TrimSpace(input.Path)
	if objectID == "" {
		objectID = ObjectTypeOverride
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeOverride,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
