// Package mutate implements the safe mutation transaction: backup, apply,
// verify, then keep or restore. The guarantee is zero-risk mutation: after
// a transaction the target holds either its original content or verified
// proposed content, never an intermediate state, and no backup artifact
// survives a terminal outcome.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fixpoint-ai/fixpoint/internal/types"
	"github.com/fixpoint-ai/fixpoint/internal/verify"
)

// BackupSuffix is appended to the target path to name the backup snapshot.
// At most one backup artifact may exist per target at any time.
const BackupSuffix = ".backup"

// ErrTargetNotFound is returned when the mutation target does not exist.
// This is a precondition violation, surfaced before the transaction starts.
var ErrTargetNotFound = errors.New("mutation target not found")

// ErrTransactionInFlight is returned when a backup artifact already exists
// for the target, meaning another mutation transaction is (or appears to be)
// in progress. Overlapping transactions on one target are an invariant
// violation; callers must serialize them.
var ErrTransactionInFlight = errors.New("mutation already in flight for target")

// Controller executes safe mutation transactions. It holds no per-target
// state between calls; the on-disk backup artifact is the only transaction
// record, and it is removed on every terminal outcome.
type Controller struct {
	backupSuffix string
}

// NewController creates a mutation controller with the standard backup suffix.
func NewController() *Controller {
	return &Controller{backupSuffix: BackupSuffix}
}

// BackupPath returns the backup artifact path for a target.
func (c *Controller) BackupPath(target string) string {
	return target + c.backupSuffix
}

// Apply runs one mutation transaction: snapshot the target, overwrite it
// with proposed, run the verifier, then commit or restore.
//
// Expected failures come back as typed outcomes on the result, never as
// errors: a failed write is OutcomeWriteFailed (original content restored),
// a failed or timed-out verification is OutcomeRolledBack. The error return
// is reserved for precondition violations (ErrTargetNotFound,
// ErrTransactionInFlight) and for conditions where the safety guarantee
// itself is in doubt, such as an unreadable backup during emergency restore.
func (c *Controller) Apply(ctx context.Context, target string, proposed []byte, verifier verify.Verifier) (result *types.MutationResult, err error) {
	// Step 1: snapshot. Reading the target also proves it exists and is
	// readable before anything is touched.
	original, mode, readErr := readWithMode(target)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
		}
		return nil, fmt.Errorf("failed to read target %s: %w", target, readErr)
	}

	backupPath := c.BackupPath(target)
	if _, statErr := os.Stat(backupPath); statErr == nil {
		return nil, fmt.Errorf("%w: backup artifact exists at %s", ErrTransactionInFlight, backupPath)
	}
	if writeErr := os.WriteFile(backupPath, original, 0600); writeErr != nil {
		// Without a backup there is no safety guarantee to offer.
		return nil, fmt.Errorf("failed to create backup for %s: %w", target, writeErr)
	}

	result = &types.MutationResult{Target: target}

	// Anything unexpected from here on must attempt an emergency restore
	// before surfacing. A panic mid-transaction becomes CriticalFailure.
	defer func() {
		if r := recover(); r != nil {
			restoreErr := c.restore(target, mode)
			result.Outcome = types.OutcomeCriticalFailure
			result.Err = fmt.Errorf("panic during mutation of %s: %v", target, r)
			if restoreErr != nil {
				err = fmt.Errorf("emergency restore failed after panic (%v): %w", r, restoreErr)
			}
		}
	}()

	// Step 2: apply. A failed write restores the original immediately so
	// no partial-write state can be observed.
	if writeErr := os.WriteFile(target, proposed, mode); writeErr != nil {
		if restoreErr := c.restore(target, mode); restoreErr != nil {
			return result, fmt.Errorf("write failed and restore failed for %s: %w", target, restoreErr)
		}
		result.Outcome = types.OutcomeWriteFailed
		result.Err = writeErr
		return result, nil
	}

	// Step 3: verify. The verifier bounds its own run with the caller's
	// timeout; a timeout comes back as an ordinary failed result.
	verification, verifyErr := verifier.Run(ctx, target)
	if verifyErr != nil {
		// Interpretable runner problems (failing tests, timeout, missing
		// runner binary) come back as failed results and roll back below.
		// An error here means the verifier produced no outcome at all, so
		// the proposed content is unverifiable.
		if restoreErr := c.restore(target, mode); restoreErr != nil {
			return result, fmt.Errorf("verifier error (%v) and restore failed for %s: %w", verifyErr, target, restoreErr)
		}
		result.Outcome = types.OutcomeCriticalFailure
		result.Err = verifyErr
		return result, nil
	}
	result.Verification = verification

	// Step 4/5: commit or roll back.
	if verification.Success {
		if removeErr := os.Remove(backupPath); removeErr != nil {
			return result, fmt.Errorf("mutation kept but backup cleanup failed for %s: %w", target, removeErr)
		}
		result.Outcome = types.OutcomeKept
		return result, nil
	}

	if restoreErr := c.restore(target, mode); restoreErr != nil {
		return result, fmt.Errorf("verification failed and restore failed for %s: %w", target, restoreErr)
	}
	result.Outcome = types.OutcomeRolledBack
	return result, nil
}

// restore moves the backup snapshot back over the target and removes the
// backup artifact. An unreadable backup at this point is surfaced, never
// swallowed: losing the snapshot silently would lose data.
func (c *Controller) restore(target string, mode fs.FileMode) error {
	backupPath := c.BackupPath(target)
	content, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("backup unreadable at %s: %w", backupPath, err)
	}
	if err := os.WriteFile(target, content, mode); err != nil {
		return fmt.Errorf("failed to restore %s from backup: %w", target, err)
	}
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to remove backup %s: %w", backupPath, err)
	}
	return nil
}

// readWithMode reads a file and its permission bits so a restore can
// preserve the original mode.
func readWithMode(path string) ([]byte, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return content, info.Mode().Perm(), nil
}
