package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/pkg/store"
)

// session is an overlay over a file store, with the --set overrides applied.
type session struct {
	file    *store.File
	overlay *overlay.Overlay
}

func (s *session) Close(ctx context.Context) error {
	return s.overlay.Close(ctx)
}

func openSession(cmd *cobra.Command, cfg Config, path string, sets []string, watch bool) (*session, error) {
	overrides := make([]overlay.Fragment, 0, len(sets))
	for _, raw := range sets {
		key, value, err := parseSet(raw)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, overlay.NewOverride(key, value))
	}

	evaluator, err := newEvaluator(cfg.Engine)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.DiscardHandler)
	if cfg.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	fileOpts := []store.FileOption{store.WithLogger(logger)}
	if watch {
		fileOpts = append(fileOpts, store.WithWatch(true), store.WithDebounce(cfg.Debounce))
	}

	ov, err := overlay.Open(cmd.Context(), store.FileProvider(path, fileOpts...),
		overlay.WithOverrides(overrides...),
		overlay.WithScope(overlay.NewScope("cli", overlay.ScopePriorityUser, overlay.WithScopeLabel("Command line"))),
		overlay.WithEvaluator(evaluator),
		overlay.WithChangeLogger(overlay.NewSlogChangeLogger(logger)),
		overlay.WithEvaluatorLogger(overlay.NewSlogEvaluatorLogger(logger)),
	)
	if err != nil {
		return nil, err
	}
	file, _ := ov.Store().(*store.File)
	return &session{file: file, overlay: ov}, nil
}

// parseSet splits key=value and decodes value as a YAML scalar, so
// "port=6000" yields an int and "name=web" a string.
func parseSet(raw string) (string, any, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid --set %q: want key=value", raw)
	}
	if strings.TrimSpace(value) == "" {
		return key, "", nil
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(value), &decoded); err != nil {
		return "", nil, fmt.Errorf("invalid --set %q: %w", raw, err)
	}
	return key, decoded, nil
}

func encode(w io.Writer, format string, value any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	}
}
