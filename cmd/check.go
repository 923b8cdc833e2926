package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/redirtxt/redirtxt/internal/config"
	"github.com/redirtxt/redirtxt/internal/rule"
)

var checkCmd = &cobra.Command{
	Use:   "check [rules-file]",
	Short: "Parse a rule set and print the rules and the skipped lines",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	text := cfg.Rules
	file := cfg.RulesFile
	if len(args) == 1 {
		file = args[0]
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("os.ReadFile: %w", err)
		}
		text = string(b)
	}

	engine := rule.NewEngine(rule.EngineOptions{
		Codes:         cfg.StatusCodes(),
		DefaultStatus: cfg.DefaultStatus,
	})
	report := rule.ParseReport(text, engine.ParseOptions(true, true))
	printReport(cmd.OutOrStdout(), report, engine.Codes())
	if len(report.Skipped) > 0 {
		return fmt.Errorf("%d line(s) skipped", len(report.Skipped))
	}
	return nil
}

func printReport(out io.Writer, report rule.Report, codes *rule.StatusCodes) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tFROM\tTYPE\tTO\tTYPE")
	for _, r := range report.Rules {
		fmt.Fprintf(tw, "%d %s\t%s\t%s\t%s\t%s\n", r.Status, codes.Label(r.Status), r.From, r.FromKind(), r.To, r.ToKind())
	}
	_ = tw.Flush()

	if len(report.Skipped) == 0 {
		return
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tREASON\tTEXT")
	for _, s := range report.Skipped {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Line, s.Reason, s.Text)
	}
	_ = tw.Flush()
}
