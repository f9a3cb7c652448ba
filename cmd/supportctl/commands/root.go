// Package commands holds the supportctl cobra commands.
package commands

import (
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	server      string
	format      string
	approver    string
	approverKey string
	timeout     time.Duration
}

// Execute builds the root command and runs it against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the supportctl root command with all subcommands.
func NewRootCmd() *cobra.Command {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	opts := &options{}
	cmd := &cobra.Command{
		Use:   "supportctl",
		Short: "Command-line client for the AutoCRM support service",
		Long: `supportctl talks to a running AutoCRM service over its HTTP API.

Submit customer messages, run the demo scenarios and approve or deny
requests that the workflow suspended for a human decision.

Environment:
  AUTOCRM_URL           service base URL (default http://localhost:8080)
  AUTOCRM_APPROVER      name recorded on approve/deny
  AUTOCRM_APPROVER_KEY  key sent on approve/deny`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("AUTOCRM_URL", "http://localhost:8080"), "AutoCRM base URL")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "auto", "Output format: auto, json or text")
	cmd.PersistentFlags().StringVar(&opts.approver, "approver", os.Getenv("AUTOCRM_APPROVER"), "Decider name for approve/deny")
	cmd.PersistentFlags().StringVar(&opts.approverKey, "approver-key", os.Getenv("AUTOCRM_APPROVER_KEY"), "Approver key for approve/deny")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "Request timeout")

	cmd.AddCommand(
		newRunCmd(opts),
		newScenarioCmd(opts),
		newApprovalsCmd(opts),
		newDecisionCmd(opts, true),
		newDecisionCmd(opts, false),
		newResetCmd(opts),
	)
	return cmd
}

func (o *options) client() *Client {
	return NewClient(o.server, o.timeout)
}

func (o *options) printer(w io.Writer) *printer {
	return newPrinter(w, o.format)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
