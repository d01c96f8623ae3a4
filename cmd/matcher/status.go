package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradmatch/matcher/internal/db"
	"github.com/gradmatch/matcher/internal/distribution"
	"github.com/gradmatch/matcher/internal/observability"
	"github.com/gradmatch/matcher/internal/types"
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Show a user's weekly quota and match audit trail",
	RunE:  runStatusCmd,
}

var (
	statusDatabaseURL string
	statusUserEmail   string
	statusJobHash     string
)

func init() {
	statusCommand.Flags().StringVar(&statusDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	statusCommand.Flags().StringVarP(&statusUserEmail, "user", "u", "", "User email (required)")
	statusCommand.Flags().StringVar(&statusJobHash, "job", "", "Print the provenance record for one matched job")
	_ = statusCommand.MarkFlagRequired("user")

	rootCmd.AddCommand(statusCommand)
}

func runStatusCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	databaseURL := statusDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (--db-url or DATABASE_URL)")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	prefs, err := database.GetUserPreferences(ctx, statusUserEmail)
	if err != nil {
		return err
	}
	if prefs == nil {
		return fmt.Errorf("no preferences on file for %s", statusUserEmail)
	}

	now := time.Now()
	quota := distribution.SendQuota(prefs.Tier)
	remaining, err := database.RemainingSends(ctx, prefs.Email, quota, now)
	if err != nil {
		return err
	}

	fmt.Printf("User:      %s (%s tier)\n", prefs.Email, prefs.Tier)
	fmt.Printf("Week of:   %s\n", types.WeekStart(now).Format("2006-01-02"))
	fmt.Printf("Sends:     %d of %d remaining\n", remaining, quota)

	ledger, err := database.GetSendLedger(ctx, prefs.Email, now)
	if err != nil {
		return err
	}
	if ledger != nil {
		fmt.Printf("Delivered: %d jobs across %d sends this week\n", ledger.JobsSent, ledger.SendsUsed)
	}

	if statusJobHash != "" {
		rec, err := database.GetMatchProvenance(ctx, prefs.Email, statusJobHash)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no match on record for job %s", statusJobHash)
		}
		observability.NewPrinter(os.Stdout).PrintProvenance(rec)
	}
	return nil
}
