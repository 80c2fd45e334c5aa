package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fixpoint-ai/fixpoint/internal/mutate"
	"github.com/fixpoint-ai/fixpoint/internal/types"
	"github.com/fixpoint-ai/fixpoint/internal/verify"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a proposed change through the safe mutation protocol",
	Long: `Apply proposed content to a target file transactionally:
the original is backed up, the change is written, the test suite runs, and
the change is kept only if verification passes. On any failure the original
content is restored exactly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		contentFile, _ := cmd.Flags().GetString("content-file")
		testTarget, _ := cmd.Flags().GetString("tests")

		if target == "" {
			return fmt.Errorf("--target is required")
		}
		if testTarget == "" {
			testTarget = target
		}

		proposed, err := readProposed(contentFile)
		if err != nil {
			return err
		}

		verifier := newVerifier()
		controller := mutate.NewController()
		result, err := controller.Apply(cmd.Context(), target, proposed,
			fixedTargetVerifier{verifier, testTarget})
		if err != nil {
			return err
		}

		printMutationResult(result)
		if !result.Kept() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().String("target", "", "file to mutate")
	applyCmd.Flags().String("content-file", "", "file holding the proposed content (default: stdin)")
	applyCmd.Flags().String("tests", "", "verification target (default: the mutated file)")
	rootCmd.AddCommand(applyCmd)
}

// readProposed reads the proposed content from a file or stdin.
func readProposed(contentFile string) ([]byte, error) {
	if contentFile == "" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read proposed content from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(contentFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposed content: %w", err)
	}
	return content, nil
}

// newVerifier builds the configured command verifier.
func newVerifier() *verify.CommandVerifier {
	return &verify.CommandVerifier{
		Command:      cfg.Verifier.Command,
		Args:         cfg.Verifier.Args,
		Timeout:      cfg.Verifier.Timeout(),
		Policy:       verify.MissingRunnerPolicy(cfg.Verifier.MissingRunnerPolicy),
		TextFallback: cfg.Verifier.TextFallback,
	}
}

// fixedTargetVerifier runs the inner verifier against a fixed test target
// instead of whatever file the mutation controller hands it.
type fixedTargetVerifier struct {
	inner      verify.Verifier
	testTarget string
}

func (v fixedTargetVerifier) Run(ctx context.Context, _ string) (*types.VerificationResult, error) {
	return v.inner.Run(ctx, v.testTarget)
}

func printMutationResult(result *types.MutationResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch result.Outcome {
	case types.OutcomeKept:
		fmt.Printf("%s Change kept: verification passed\n", green("✓"))
	case types.OutcomeRolledBack:
		fmt.Printf("%s Change rolled back: verification failed\n", yellow("⚠"))
	case types.OutcomeWriteFailed:
		fmt.Printf("%s Write failed, original restored: %v\n", red("✗"), result.Err)
	case types.OutcomeCriticalFailure:
		fmt.Printf("%s Critical failure, emergency restore attempted: %v\n", red("✗"), result.Err)
	}
	if result.Verification != nil && result.Verification.RawOutput != "" {
		fmt.Printf("\nVerification output:\n%s\n", result.Verification.RawOutput)
	}
}
