package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/ledger"
	"github.com/codewright/codewright/internal/ui"
)

var (
	usageDays int
	usageJSON bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show recorded token usage and spend",
	Long: `Show token usage and estimated spend from the local ledger, grouped by
day and model. Every completed exchange is recorded there unless
usage.track is disabled in the config.

Examples:
  codewright usage            # last 7 days
  codewright usage --days 30  # last 30 days
  codewright usage --days 0   # all time
  codewright usage --json     # machine-readable output`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().IntVar(&usageDays, "days", 7, "Window in days (0 for all time)")
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Usage.Path
	if path == "" {
		path, err = ledger.DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No usage recorded yet.")
		return nil
	}

	l, err := ledger.Open(path)
	if err != nil {
		return fmt.Errorf("open usage ledger: %w", err)
	}
	defer l.Close()

	ctx := context.Background()
	rows, err := l.Summary(ctx, usageDays)
	if err != nil {
		return fmt.Errorf("query usage: %w", err)
	}
	totals, err := l.WindowTotals(ctx, usageDays)
	if err != nil {
		return fmt.Errorf("query usage totals: %w", err)
	}

	if usageJSON {
		return printUsageJSON(rows, totals)
	}
	return printUsageTable(rows, totals)
}

type usageJSONOutput struct {
	Rows   []usageJSONRow `json:"rows"`
	Totals usageJSONRow   `json:"totals"`
}

type usageJSONRow struct {
	Date         string  `json:"date,omitempty"`
	Model        string  `json:"model,omitempty"`
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	CostUSD      float64 `json:"costUSD"`
}

func printUsageJSON(rows []ledger.SummaryRow, totals ledger.Totals) error {
	out := usageJSONOutput{
		Rows: make([]usageJSONRow, len(rows)),
		Totals: usageJSONRow{
			Requests:     totals.Requests,
			InputTokens:  totals.InputTokens,
			OutputTokens: totals.OutputTokens,
			CostUSD:      totals.CostUSD,
		},
	}
	for i, r := range rows {
		out.Rows[i] = usageJSONRow{
			Date:         r.Day,
			Model:        r.Model,
			Requests:     r.Requests,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			CostUSD:      r.CostUSD,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printUsageTable(rows []ledger.SummaryRow, totals ledger.Totals) error {
	if len(rows) == 0 {
		fmt.Println("No usage recorded in this window.")
		return nil
	}

	if usageDays > 0 {
		fmt.Printf("Usage for the last %d days\n\n", usageDays)
	} else {
		fmt.Println("Usage, all time")
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Date\t Reqs\t Input\t Output\t Cost\t\n")
	fmt.Fprintf(w, "────\t ────\t ─────\t ──────\t ────\t\n")

	lastDay := ""
	for _, r := range rows {
		if r.Day != lastDay {
			fmt.Fprintf(w, "%s\t\t\t\t\t\n", r.Day)
			lastDay = r.Day
		}
		fmt.Fprintf(w, "  %s\t %d\t %s\t %s\t %s\t\n",
			shortenModelName(r.Model),
			r.Requests,
			formatTokens(r.InputTokens),
			formatTokens(r.OutputTokens),
			ui.FormatCost(r.CostUSD, true))
	}

	fmt.Fprintf(w, "────\t ────\t ─────\t ──────\t ────\t\n")
	fmt.Fprintf(w, "Total\t %d\t %s\t %s\t %s\t\n",
		totals.Requests,
		formatTokens(totals.InputTokens),
		formatTokens(totals.OutputTokens),
		ui.FormatCost(totals.CostUSD, true))

	return w.Flush()
}

// formatTokens renders a token count in human units (1.5M, 384k).
func formatTokens(n int) string {
	if n == 0 {
		return "0"
	}
	if n >= 1_000_000 {
		val := float64(n) / 1_000_000
		if val >= 10 {
			return fmt.Sprintf("%.0fM", val)
		}
		return fmt.Sprintf("%.1fM", val)
	}
	if n >= 1_000 {
		val := float64(n) / 1_000
		if val >= 10 {
			return fmt.Sprintf("%.0fk", val)
		}
		return fmt.Sprintf("%.1fk", val)
	}
	return fmt.Sprintf("%d", n)
}

// shortenModelName trims provider prefixes and over-long IDs so the
// table column stays narrow.
func shortenModelName(model string) string {
	if idx := strings.LastIndexByte(model, '/'); idx >= 0 {
		model = model[idx+1:]
	}
	if len(model) > 32 {
		model = model[:29] + "..."
	}
	return model
}
