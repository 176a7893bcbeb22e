package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	overlay "github.com/goliatone/go-overlay"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	updatedColor = color.New(color.FgYellow)
)

func newWatchCommand(cfg *Config) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Print changes to a config file as they happen",
		Long: `Watch FILE and print every change that is visible through the overlay.
Keys overridden with --set are shadowed and never reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, *cfg, args[0], sets, true)
			if err != nil {
				return err
			}
			defer sess.Close(cmd.Context())

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			sub := sess.overlay.OnChange(func(change overlay.Change) {
				mu.Lock()
				defer mu.Unlock()
				writeChange(out, change)
			})
			defer sub.Dispose()

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", sess.file.Path())
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a key (key=value, repeatable)")
	return cmd
}

func writeChange(w io.Writer, change overlay.Change) {
	key, ok := change.Key()
	if !ok {
		return
	}
	switch {
	case change.Old == nil:
		addedColor.Fprintf(w, "+ %s = %v\n", key, change.New.Value)
	case change.New == nil:
		removedColor.Fprintf(w, "- %s (was %v)\n", key, change.Old.Value)
	default:
		updatedColor.Fprintf(w, "~ %s: %v -> %v\n", key, change.Old.Value, change.New.Value)
	}
}
