package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igharvest/pkg/history"
	"igharvest/pkg/ui"
)

var (
	historyTarget string
	historyLimit  int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past download runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent download runs",
	Example: `  igharvest history list
  igharvest history list --target natgeo --limit 5`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one download run",
	Long:  `Show one download run. A unique prefix of the run ID is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().StringVarP(&historyTarget, "target", "t", "", "only runs for this profile, URL or 'saved'")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("job history is disabled in the configuration")
	}
	return history.Open(cfg.History.Path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(historyTarget, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.PrintInfo("No download runs recorded", "start one with 'igharvest download'")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %-10s %-9s %s  %s\n",
			ui.Dim(shortID(r.ID)),
			statusColor(r.Status),
			r.Kind,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Target)
		fmt.Printf("          %d downloaded, %d skipped, %d failed in %s\n",
			r.Downloaded, r.Skipped, r.Failed, ui.FormatDuration(r.Duration()))
	}

	stats, err := store.Stats()
	if err != nil {
		return err
	}
	fmt.Println()
	ui.PrintInfo("Runs", fmt.Sprintf("%d total, %d running, %d completed, %d stopped, %d failed",
		stats.Total, stats.Running, stats.Completed, stats.Stopped, stats.Failed))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(args[0])
	if err != nil {
		return err
	}

	ui.PrintInfo("ID", r.ID)
	ui.PrintInfo("Target", fmt.Sprintf("%s (%s)", r.Target, r.Kind))
	fmt.Printf("%s: %s\n", ui.Cyan("Status"), statusColor(r.Status))
	ui.PrintInfo("Started", r.StartedAt.Format(time.RFC1123))
	if r.FinishedAt != nil {
		ui.PrintInfo("Finished", r.FinishedAt.Format(time.RFC1123))
	}
	ui.PrintInfo("Duration", ui.FormatDuration(r.Duration()))
	if r.Root != "" {
		ui.PrintInfo("Folder", r.Root)
	}
	ui.PrintInfo("Files", fmt.Sprintf("%d written, %d downloaded, %d skipped, %d failed",
		r.Files, r.Downloaded, r.Skipped, r.Failed))
	if r.Message != "" {
		ui.PrintInfo("Message", r.Message)
	}
	return nil
}

func statusColor(s history.Status) string {
	switch s {
	case history.StatusCompleted:
		return ui.Green(string(s))
	case history.StatusFailed:
		return ui.Red(string(s))
	case history.StatusStopped, history.StatusPaused:
		return ui.Yellow(string(s))
	default:
		return ui.Cyan(string(s))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
