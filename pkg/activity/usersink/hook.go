// Package usersink forwards overlay activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-overlay/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Channel overrides the event channel when set.
	Channel string
}

var _ activity.ActivityHook = Hook{}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Identifiers that are not UUIDs map to uuid.Nil and are kept in Data.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := cloneMap(normalized.Metadata)
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID, "actor_id", &data),
		UserID:     parseUUID(normalized.UserID, "user_id", &data),
		TenantID:   parseUUID(normalized.TenantID, "tenant_id", &data),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		OccurredAt: normalized.OccurredAt,
	}
	if channel := strings.TrimSpace(h.Channel); channel != "" {
		record.Channel = channel
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	record.Data = data

	return h.Sink.Log(ctx, record)
}

// parseUUID returns the parsed id, or uuid.Nil after stashing a non-empty
// raw value in data under key.
func parseUUID(input, key string, data *map[string]any) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err == nil {
		return id
	}
	if *data == nil {
		*data = map[string]any{}
	}
	(*data)[key] = value
	return uuid.Nil
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
