package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// printer renders results as indented JSON or as human text. "auto" picks
// text on a terminal and JSON otherwise so output pipes cleanly into jq.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) *printer {
	p := &printer{w: w}
	switch format {
	case "json":
		p.json = true
	case "text":
	default:
		p.json = !isTerminal(w)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

func (p *printer) emitJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) chat(r *ChatResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	return p.outcome(r.RunID, r.Route, r.GuardRail, r.AgentSuccess, r.RequiresHumanApproval, r.Response)
}

func (p *printer) run(r *RunResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	return p.outcome(r.RunID, r.Route, r.GuardRail, r.Success, r.RequiresHumanApproval, r.Response)
}

func (p *printer) outcome(runID, route, guardRail string, success, needsApproval bool, response string) error {
	if guardRail == "" {
		guardRail = "NONE"
	}
	fmt.Fprintf(p.w, "Run:        %s\n", runID)
	fmt.Fprintf(p.w, "Route:      %s\n", route)
	fmt.Fprintf(p.w, "Guard rail: %s\n", guardRail)
	fmt.Fprintf(p.w, "Success:    %t\n", success)
	if needsApproval {
		fmt.Fprintf(p.w, "Status:     waiting for approval (supportctl approve %s)\n", runID)
	}
	fmt.Fprintf(p.w, "\n%s\n", strings.TrimSpace(response))
	return nil
}

func (p *printer) scenarios(list []Scenario) error {
	if p.json {
		return p.emitJSON(list)
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTITLE\tDESCRIPTION")
	for _, s := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Title, s.Description)
	}
	return w.Flush()
}

func (p *printer) approvals(list []Approval) error {
	if p.json {
		if list == nil {
			list = []Approval{}
		}
		return p.emitJSON(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(p.w, "No approvals found.")
		return nil
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN_ID\tROUTE\tGUARD_RAIL\tUSER\tAMOUNT\tSTATUS\tDECIDER")
	for i := range list {
		a := &list[i]
		amount := "-"
		if a.Amount != nil {
			amount = fmt.Sprintf("$%.2f", *a.Amount)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			a.RunID, a.Route, a.GuardRail, a.UserID, amount, a.Status, a.Decider)
	}
	return w.Flush()
}

func (p *printer) approval(a *Approval) error {
	if p.json {
		return p.emitJSON(a)
	}
	fmt.Fprintf(p.w, "Run:        %s\n", a.RunID)
	fmt.Fprintf(p.w, "Route:      %s\n", a.Route)
	fmt.Fprintf(p.w, "Guard rail: %s\n", a.GuardRail)
	fmt.Fprintf(p.w, "Status:     %s\n", a.Status)
	if a.Decider != "" {
		fmt.Fprintf(p.w, "Decider:    %s\n", a.Decider)
	}
	if a.Outcome != nil {
		fmt.Fprintf(p.w, "Success:    %t\n\n%s\n", a.Outcome.Success, strings.TrimSpace(a.Outcome.Response))
	}
	return nil
}
