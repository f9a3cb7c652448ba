package commands

import (
	"github.com/spf13/cobra"
)

func newScenarioCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [name]",
		Short: "List or run the demo scenarios",
		Long: `Without a name, list the demo scenarios. With a name, run it.

Examples:
  supportctl scenario
  supportctl scenario manager`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			p := opts.printer(cmd.OutOrStdout())
			if len(args) == 0 {
				list, err := c.Scenarios(cmd.Context())
				if err != nil {
					return err
				}
				return p.scenarios(list)
			}
			res, err := c.RunScenario(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.run(res)
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the demo users and orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.client().Reset(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Database reset to initial state")
			return nil
		},
	}
}
