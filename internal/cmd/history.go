package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qainsight/siteaudit/internal/audit"
	"github.com/qainsight/siteaudit/internal/storage"
)

// historyCmd lists a website's past runs for trend inspection
var historyCmd = &cobra.Command{
	Use:   "history [URL]",
	Short: "List past audit runs for a website",
	Long: `History lists the recorded audit runs for a website, newest first,
together with the recent score trend. Runs are append-only, so the
listing is the complete audit record for the target.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 10, "Maximum runs to list (0=all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
		return fmt.Errorf("no database found at %s", cfg.DatabasePath)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()

	website, err := store.GetWebsiteByURL(audit.NormalizeURL(args[0]))
	if err != nil {
		return err
	}
	if website == nil {
		fmt.Printf("No audits recorded for %s\n", args[0])
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(website.ID, limit)
	if err != nil {
		return err
	}

	name := website.Label
	if name == "" {
		name = website.URL
	}
	fmt.Printf("Audit history for %s (%s)\n\n", name, website.URL)

	fmt.Printf("%-25s %-16s %-7s %-6s %-9s %s\n",
		"STARTED", "OUTCOME", "STATUS", "SCORE", "ELAPSED", "SUMMARY")
	for _, run := range runs {
		status := "-"
		if run.StatusCode != nil {
			status = strconv.Itoa(*run.StatusCode)
		}
		fmt.Printf("%-25s %-16s %-7s %-6d %-9s %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Outcome, status, run.Score,
			fmt.Sprintf("%dms", run.ElapsedMS), run.Summary)
	}

	scores, err := store.RecentScores(website.ID, 10)
	if err != nil {
		return err
	}
	if len(scores) > 1 {
		parts := make([]string, len(scores))
		for i, score := range scores {
			parts[i] = strconv.Itoa(score)
		}
		fmt.Printf("\nScore trend (oldest first): %s\n", strings.Join(parts, " -> "))
	}

	return nil
}
