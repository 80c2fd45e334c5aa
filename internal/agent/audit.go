package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fixpoint-ai/fixpoint/internal/report"
	"github.com/fixpoint-ai/fixpoint/internal/tools"
)

// Audit runs the comprehensive review flow: all three specialists consulted
// in parallel, then their reports merged into a single verdict. The reader
// tool confines file access to the project root.
func Audit(ctx context.Context, client *Client, reader tools.Tool, path string) (*report.Aggregate, error) {
	code, err := reader.Invoke(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit target: %w", err)
	}

	var security, quality, testNotes string

	// The specialists are independent, so consult them concurrently. The
	// client's semaphore still caps total in-flight API calls.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var scanErr error
		security, scanErr = client.SecurityScan(gctx, path, code)
		return scanErr
	})
	g.Go(func() error {
		var checkErr error
		quality, checkErr = client.QualityCheck(gctx, path, code)
		return checkErr
	})
	g.Go(func() error {
		var genErr error
		testNotes, genErr = client.GenerateTests(gctx, path, code)
		return genErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("specialist consultation failed: %w", err)
	}

	return report.Build(report.Input{
		Security:  security,
		Quality:   quality,
		TestNotes: testNotes,
	}), nil
}
