package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igharvest/pkg/auth"
	"igharvest/pkg/instagram"
	"igharvest/pkg/logger"
	"igharvest/pkg/profilecheck"
	"igharvest/pkg/ui"
)

var (
	checkAccount     string
	checkConcurrency int
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <profile>...",
	Short: "Check whether profiles exist",
	Long: `Look up one or more profile names and print the full name of each
existing profile, or the reason it could not be found.

Instagram answers most lookups only for logged-in sessions; pass --account
to use a session from the credential store.`,
	Example: `  igharvest check natgeo nasa
  igharvest check natgeo --account me`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkAccount, "account", "a", "", "use a session from the credential store")
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", profilecheck.DefaultConcurrency, "profiles looked up at the same time")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	client := instagram.NewClient(instagram.Options{
		Timeout:           time.Duration(cfg.Instagram.RequestTimeout) * time.Second,
		UserAgent:         cfg.Instagram.UserAgent,
		RequestsPerMinute: cfg.Instagram.RequestsPerMinute,
	}, log)

	if checkAccount != "" {
		manager, err := auth.NewManager(credentialDir())
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		account, err := manager.Retrieve(checkAccount)
		if err != nil {
			return err
		}
		if err := client.UseSession(account.Session()); err != nil {
			return err
		}
	}

	results, err := profilecheck.CheckAll(cmd.Context(), client, args, checkConcurrency, log)
	if err != nil {
		return err
	}

	missing := 0
	for _, r := range results {
		if r.Exists {
			ui.PrintSuccess(fmt.Sprintf("✓ %s  %s", r.Username, r.Message))
			continue
		}
		missing++
		ui.PrintError(fmt.Sprintf("✗ %s  %s", r.Username, r.Message))
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d profiles could not be found", missing, len(results))
	}
	return nil
}
