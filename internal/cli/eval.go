package cli

import (
	"github.com/spf13/cobra"
)

func newEvalCommand(cfg *Config) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "eval FILE EXPR",
		Short: "Evaluate an expression against the merged view",
		Long: `Load FILE, apply the --set overrides and evaluate EXPR with the
engine named by OVERLAYCTL_ENGINE. Top-level keys are exposed as variables.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, *cfg, args[0], sets, false)
			if err != nil {
				return err
			}
			defer sess.Close(cmd.Context())

			result, err := sess.overlay.Evaluate(args[1])
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), cfg.Format, result)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a key (key=value, repeatable)")
	return cmd
}
