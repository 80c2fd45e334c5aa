package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixpoint-ai/fixpoint/internal/agent"
	"github.com/fixpoint-ai/fixpoint/internal/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit <file>",
	Short: "Run a comprehensive code audit with all specialist agents",
	Long: `Consult the security scanner, code quality checker, and unit test
generator in parallel, then aggregate their findings into a single
severity-ranked report with a final REJECT / CONDITIONAL / APPROVE verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newAgentClient(store)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Consulting specialists for %s...\n", args[0])
		agg, err := agent.Audit(cmd.Context(), client, newReader(), args[0])
		if err != nil {
			return err
		}

		fmt.Print(agg.Text)

		switch agg.Verdict {
		case types.VerdictReject:
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(os.Stderr, "\n%s verdict: %s\n", red("✗"), agg.Verdict)
			os.Exit(1)
		case types.VerdictConditional:
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Fprintf(os.Stderr, "\n%s verdict: %s\n", yellow("⚠"), agg.Verdict)
		default:
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Fprintf(os.Stderr, "\n%s verdict: %s\n", green("✓"), agg.Verdict)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
