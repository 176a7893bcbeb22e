package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(cfg *Config) *cobra.Command {
	var (
		sets  []string
		key   string
		trace bool
	)
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the merged view of a config file",
		Long: `Load FILE, apply the --set overrides and print the merged value.

With --key only that key is printed. With --trace every layer is listed
with the value it holds for the key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trace && key == "" {
				return fmt.Errorf("--trace requires --key")
			}
			sess, err := openSession(cmd, *cfg, args[0], sets, false)
			if err != nil {
				return err
			}
			defer sess.Close(cmd.Context())

			out := cmd.OutOrStdout()
			switch {
			case trace:
				return encode(out, cfg.Format, sess.overlay.Trace(key))
			case key != "":
				fragment, ok := sess.overlay.Get(key)
				if !ok {
					return fmt.Errorf("key %q not found", key)
				}
				return encode(out, cfg.Format, fragment.Value)
			default:
				return encode(out, cfg.Format, sess.overlay.Value())
			}
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a key (key=value, repeatable)")
	cmd.Flags().StringVar(&key, "key", "", "print a single key")
	cmd.Flags().BoolVar(&trace, "trace", false, "show per-layer provenance for --key")
	return cmd
}
