package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/blockhand/internal/agent"
	"github.com/crystaldolphin/blockhand/internal/audit"
	"github.com/crystaldolphin/blockhand/internal/shared/cmdutils"
	"github.com/crystaldolphin/blockhand/internal/transcript"
)

var (
	historyCount      int
	historyTranscript bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent actions, or chat turns with --transcript",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "number", "n", 10, "Number of entries to show")
	historyCmd.Flags().BoolVarP(&historyTranscript, "transcript", "t", false, "Show chat turns from the transcript instead of actions")
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if historyTranscript {
		return printTranscript(cfg.TranscriptDir(), historyCount)
	}

	path := cfg.AuditPath()
	if _, err := os.Stat(path); err != nil {
		fmt.Println(cmdutils.DimStyle.Render("No actions recorded yet."))
		return nil
	}
	rec, err := audit.Open(path, logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := rec.Recent(ctx, historyCount)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(cmdutils.DimStyle.Render("No actions recorded yet."))
		return nil
	}
	// Oldest first reads like a log.
	for i := len(entries) - 1; i >= 0; i-- {
		fmt.Println(formatEntry(entries[i]))
	}
	return nil
}

func formatEntry(e audit.Entry) string {
	outcome := cmdutils.OKStyle.Render(e.Outcome)
	if e.Outcome != agent.DispatchOK {
		outcome = cmdutils.FailStyle.Render(e.Outcome)
	}
	line := fmt.Sprintf("%s  %-10s %-6s %s %s",
		cmdutils.DimStyle.Render(e.Time.Local().Format("2006-01-02 15:04:05")),
		e.Issuer, e.Tool, e.Params, outcome)
	if e.Detail != "" {
		line += cmdutils.DimStyle.Render("  " + e.Detail)
	}
	return line
}

func printTranscript(dir string, n int) error {
	records, err := transcript.ReadLast(dir, n)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(cmdutils.DimStyle.Render("No transcript yet."))
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %s: %s\n", cmdutils.DimStyle.Render(r.Time.Local().Format("2006-01-02 15:04:05")), r.Sender, r.Text)
		switch {
		case r.Error != "":
			fmt.Printf("    %s\n", cmdutils.FailStyle.Render(r.Error))
		case r.Action != nil:
			fmt.Printf("    → %s  [%s %s]\n", r.Reply, r.Action.Tool, r.Outcome)
		default:
			fmt.Printf("    → %s  [%s]\n", r.Reply, r.Outcome)
		}
	}
	return nil
}
