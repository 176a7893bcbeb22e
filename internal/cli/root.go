// Package cli implements the overlayctl command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the overlayctl command tree around cfg.
func NewRootCommand(cfg Config) *cobra.Command {
	root := &cobra.Command{
		Use:     "overlayctl",
		Version: "dev",
		Short:   "Inspect config files through a local override layer",
		Long: `overlayctl loads a YAML or JSON file as a store, layers --set overrides
on top without touching the file, and prints, evaluates or watches the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(
		newShowCommand(&cfg),
		newEvalCommand(&cfg),
		newWatchCommand(&cfg),
	)
	return root
}

// Execute runs the command tree with ctx, which watch uses to stop.
func Execute(ctx context.Context, cfg Config, args []string) error {
	root := NewRootCommand(cfg)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
