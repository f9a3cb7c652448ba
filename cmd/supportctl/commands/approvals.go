package commands

import (
	"github.com/spf13/cobra"
)

func newApprovalsCmd(opts *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "approvals [run-id]",
		Short: "List suspended runs or show one",
		Long: `List runs waiting for (or resolved by) a human decision.

Examples:
  supportctl approvals
  supportctl approvals --status approved
  supportctl approvals 6f1c2d3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			p := opts.printer(cmd.OutOrStdout())
			if len(args) == 1 {
				a, err := c.Approval(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.approval(a)
			}
			list, err := c.Approvals(cmd.Context(), status)
			if err != nil {
				return err
			}
			return p.approvals(list)
		},
	}
	cmd.Flags().StringVar(&status, "status", "pending", "Filter: pending, approved, denied, or empty for all")
	return cmd
}

// newDecisionCmd builds the approve or deny command.
func newDecisionCmd(opts *options, approve bool) *cobra.Command {
	use, short := "deny <run-id>", "Deny a suspended run"
	if approve {
		use, short = "approve <run-id>", "Approve a suspended run"
	}

	var notes string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.client().Decide(cmd.Context(), args[0], approve, opts.approver, opts.approverKey, notes)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).approval(a)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Notes passed on to the customer")
	return cmd
}
