package overlay

import (
	"context"

	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
	"github.com/goliatone/go-overlay/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified after each override
// write. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig replaces the activity emitter configuration. An empty
// channel falls back to activity.DefaultChannel.
func WithActivityConfig(activityCfg activity.Config) Option {
	return func(cfg *config) {
		cfg.activityCfg = activityCfg
	}
}

// ActivityHooks returns a copy of the configured activity hooks.
func (o *Overlay) ActivityHooks() activity.Hooks {
	if o == nil {
		return nil
	}
	return activity.CloneHooks(o.cfg.activityHooks)
}

func (o *Overlay) recordActivity(build func(activity.OverrideEventInput) activity.Event, path keypath.Path, change Change) {
	if !o.activity.Enabled() {
		return
	}

	input := activity.OverrideEventInput{
		Path: path.String(),
		Scope: activity.ScopeContext{
			Name:     o.cfg.scope.Name,
			Label:    o.cfg.scope.Label,
			Priority: o.cfg.scope.Priority,
			Metadata: copyMetadata(o.cfg.scope.Metadata),
		},
	}
	if change.Old != nil {
		input.OldValue = layering.Clone(change.Old.Value)
	}
	if change.New != nil {
		input.NewValue = layering.Clone(change.New.Value)
		input.Source = SourceStore
		if change.New.Override {
			input.Source = SourceOverride
		}
	}

	if err := o.activity.Emit(context.Background(), build(input)); err != nil {
		o.log(LogOpActivity, path, err)
	}
}
