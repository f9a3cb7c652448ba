package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		userID  int64
		orderID int64
		card    string
		amount  float64
	)
	cmd := &cobra.Command{
		Use:   "run <message>",
		Short: "Submit a customer message",
		Long: `Submit a customer message to the support workflow.

Refund requests also need --order, --card and --amount.

Examples:
  supportctl run --user 1 "Where is my order #101?"
  supportctl run --user 3 --order 103 --card 7890 --amount 599.99 "Refund my laptop"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			req := ChatRequest{UserMessage: strings.Join(args, " "), UserID: userID}
			if cmd.Flags().Changed("order") {
				req.OrderID = &orderID
			}
			if cmd.Flags().Changed("card") {
				req.CardLast4 = &card
			}
			if cmd.Flags().Changed("amount") {
				req.Amount = &amount
			}

			res, err := opts.client().Chat(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.printer(cmd.OutOrStdout()).chat(res)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Customer user id")
	cmd.Flags().Int64Var(&orderID, "order", 0, "Order id (refunds)")
	cmd.Flags().StringVar(&card, "card", "", "Last four card digits (refunds)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Refund amount (refunds)")
	return cmd
}
