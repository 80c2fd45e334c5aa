package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixpoint-ai/fixpoint/internal/agent"
	"github.com/fixpoint-ai/fixpoint/internal/memory"
	"github.com/fixpoint-ai/fixpoint/internal/repair"
	"github.com/fixpoint-ai/fixpoint/internal/search"
	"github.com/fixpoint-ai/fixpoint/internal/types"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Run an iterative repair session until tests pass",
	Long: `Run the bounded debugging loop against a failing test suite:

1. Run the tests; stop immediately if they already pass
2. Classify the failure
3. Search for similar errors once the session looks stuck
4. Generate a candidate fix and apply it through the safe mutation protocol
5. Repeat until tests pass or the retry budget runs out

Every attempt is recorded in the event store for post-mortem inspection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		tests, _ := cmd.Flags().GetString("tests")
		maxRetries, _ := cmd.Flags().GetInt("max-retries")
		noSearch, _ := cmd.Flags().GetBool("no-search")

		if target == "" || tests == "" {
			return fmt.Errorf("--target and --tests are required")
		}
		if maxRetries < 1 {
			return fmt.Errorf("--max-retries must be >= 1 (got %d)", maxRetries)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newAgentClient(store)
		if err != nil {
			return err
		}

		sessionCfg := repair.Config{
			Target:     target,
			TestTarget: tests,
			MaxRetries: maxRetries,
			Verifier:   newVerifier(),
			Fixer:      &agent.Fixer{Client: client},
			Recorder:   store,
		}
		if !noSearch {
			sessionCfg.Searcher = search.NewClient()
		}

		session, err := repair.NewSession(sessionCfg)
		if err != nil {
			return err
		}

		// Cancellation lands between attempts; nothing is ever kept
		// because of an interrupt.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Starting repair session %s (budget: %d attempts)\n",
			session.ID(), maxRetries)

		result, err := session.Run(ctx)
		if err != nil {
			return err
		}

		printRepairResult(result)
		recordLearning(result, target)

		if result.Status != types.RepairSucceeded {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().String("target", "", "code file to fix")
	repairCmd.Flags().String("tests", "", "test file or suite to verify against")
	repairCmd.Flags().Int("max-retries", repair.DefaultMaxRetries, "attempt budget (>= 1)")
	repairCmd.Flags().Bool("no-search", false, "disable the search collaborator")
	rootCmd.AddCommand(repairCmd)
}

func printRepairResult(result *types.RepairResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch result.Status {
	case types.RepairSucceeded:
		fmt.Printf("%s %s\n", green("✓"), result.Summary())
	case types.RepairExhausted:
		fmt.Printf("%s %s\n", yellow("⚠"), result.Summary())
	case types.RepairAborted:
		fmt.Printf("%s %s\n", red("✗"), result.Summary())
	}

	for _, attempt := range result.Attempts {
		line := fmt.Sprintf("  attempt %d:", attempt.AttemptNumber)
		if attempt.Verification != nil && attempt.Verification.Success {
			line += " tests passed"
		} else {
			line += fmt.Sprintf(" %s", attempt.Classification.Category)
			if attempt.FixDescriptor != "" {
				line += fmt.Sprintf(": %s", attempt.FixDescriptor)
			}
			if attempt.MutationOutcome != "" {
				line += fmt.Sprintf(" (%s)", attempt.MutationOutcome)
			}
		}
		fmt.Println(line)
	}

	if result.Status != types.RepairSucceeded && result.FinalOutput != "" {
		fmt.Printf("\nLast verification output:\n%s\n", result.FinalOutput)
	}
}

// recordLearning appends the session outcome to project memory so future
// sessions have the context. Best-effort.
func recordLearning(result *types.RepairResult, target string) {
	if cfg.MemoryPath == "" || result.Status != types.RepairSucceeded || len(result.Attempts) < 2 {
		return
	}
	mem := memory.New(cfg.MemoryPath)
	// The passing attempt carries no classification; the one that produced
	// the winning fix is the last attempt with a category.
	var fixed *types.RepairAttempt
	for i := len(result.Attempts) - 1; i >= 0; i-- {
		if result.Attempts[i].Classification.Category != "" {
			fixed = result.Attempts[i]
			break
		}
	}
	if fixed == nil {
		return
	}
	if err := mem.AddLearning(string(fixed.Classification.Category),
		fmt.Sprintf("repair of %s", target), fixed.FixDescriptor); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to update project memory: %v\n", err)
	}
}
