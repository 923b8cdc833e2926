package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/redirtxt/redirtxt/internal/config"
	"github.com/redirtxt/redirtxt/internal/redirect"
)

var matchCmd = &cobra.Command{
	Use:   "match <url>",
	Short: "Dry-run a request against the rules and print the decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().String("id", "", "Content id the request resolves to")
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	var d redirect.Decision
	if raw, _ := cmd.Flags().GetString("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", raw, err)
		}
		d = rt.redirector.EvaluateID(args[0], id)
	} else {
		d = rt.redirector.Evaluate(args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
