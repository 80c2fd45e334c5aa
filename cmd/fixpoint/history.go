package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixpoint-ai/fixpoint/internal/storage"
	"github.com/fixpoint-ai/fixpoint/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show repair session history and agent usage totals",
	Long: `List recent repair sessions from the event store. With a session ID,
show that session's full attempt-by-attempt history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			return showAttempts(cmd, store, args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := store.ListSessions(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No repair sessions recorded yet.")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, s := range sessions {
			marker := red("✗")
			switch s.Status {
			case types.RepairSucceeded:
				marker = green("✓")
			case types.RepairExhausted:
				marker = yellow("⚠")
			}
			fmt.Printf("%s %s  %s  %s  %d attempt(s)\n",
				marker, s.CreatedAt.Format("2006-01-02 15:04"), s.ID[:8], s.Target, s.AttemptCount)
		}

		totals, err := store.UsageSummary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("\nAgent usage: %d call(s), %d input / %d output tokens, est. $%.4f\n",
			totals.Calls, totals.InputTokens, totals.OutputTokens, totals.CostUSD)
		return nil
	},
}

func showAttempts(cmd *cobra.Command, store *storage.Store, sessionID string) error {
	attempts, err := store.GetAttempts(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		return fmt.Errorf("no attempts recorded for session %s", sessionID)
	}
	for _, a := range attempts {
		fmt.Printf("attempt %d  %s\n", a.AttemptNumber, a.Timestamp.Format("15:04:05"))
		if a.Verification != nil && a.Verification.Success {
			fmt.Println("  tests passed")
			continue
		}
		fmt.Printf("  category: %s\n", a.Classification.Category)
		if a.Classification.MessageExcerpt != "" {
			fmt.Printf("  excerpt: %s\n", a.Classification.MessageExcerpt)
		}
		if a.FixDescriptor != "" {
			fmt.Printf("  fix: %s\n", a.FixDescriptor)
		}
		if a.MutationOutcome != "" {
			fmt.Printf("  outcome: %s\n", a.MutationOutcome)
		}
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum sessions to list")
	rootCmd.AddCommand(historyCmd)
}
