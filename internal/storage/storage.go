// Package storage persists repair session history and agent usage telemetry
// in a local SQLite database. The attempt history is the durable post-mortem
// record of every repair session; usage rows back the cost reporting in
// `fixpoint history`.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/fixpoint-ai/fixpoint/internal/types"
)

// Store is the SQLite-backed event store. It implements repair.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema. WAL mode keeps readers from blocking the session writer.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordAttempt persists one repair attempt. Attempts are append-only;
// inserting the same (session, attempt) pair twice is an error.
func (s *Store) RecordAttempt(ctx context.Context, sessionID string, attempt *types.RepairAttempt) error {
	if attempt == nil {
		return fmt.Errorf("attempt cannot be nil")
	}
	success := 0
	exitStatus := 0
	rawOutput := ""
	if attempt.Verification != nil {
		if attempt.Verification.Success {
			success = 1
		}
		exitStatus = attempt.Verification.ExitStatus
		rawOutput = attempt.Verification.RawOutput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_attempts
			(session_id, attempt_number, category, message_excerpt,
			 search_context, fix_descriptor, mutation_outcome,
			 success, exit_status, raw_output, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, attempt.AttemptNumber,
		string(attempt.Classification.Category), attempt.Classification.MessageExcerpt,
		attempt.SearchContext, attempt.FixDescriptor, string(attempt.MutationOutcome),
		success, exitStatus, rawOutput, attempt.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to record attempt %d for session %s: %w",
			attempt.AttemptNumber, sessionID, err)
	}
	return nil
}

// RecordSession persists the terminal summary of a repair session.
func (s *Store) RecordSession(ctx context.Context, target string, result *types.RepairResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_sessions
			(id, target, status, attempt_count, final_output, abort_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.SessionID, target, string(result.Status), result.AttemptCount,
		result.FinalOutput, result.AbortReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", result.SessionID, err)
	}
	return nil
}

// RecordAgentUsage logs one agent API interaction for cost tracking.
func (s *Store) RecordAgentUsage(ctx context.Context, agent, action string, inputTokens, outputTokens int64, costUSD float64, duration time.Duration, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_usage
			(agent, action, input_tokens, output_tokens, cost_usd, duration_ms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		agent, action, inputTokens, outputTokens, costUSD, duration.Milliseconds(),
		status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record agent usage: %w", err)
	}
	return nil
}

// SessionSummary is one row of stored session history.
type SessionSummary struct {
	ID           string
	Target       string
	Status       types.RepairStatus
	AttemptCount int
	AbortReason  string
	CreatedAt    time.Time
}

// ListSessions returns the most recent repair sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, status, attempt_count, abort_reason, created_at
		FROM repair_sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var status string
		if err := rows.Scan(&sum.ID, &sum.Target, &status, &sum.AttemptCount,
			&sum.AbortReason, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sum.Status = types.RepairStatus(status)
		sessions = append(sessions, &sum)
	}
	return sessions, rows.Err()
}

// GetAttempts returns the full attempt history for a session, in order.
func (s *Store) GetAttempts(ctx context.Context, sessionID string) ([]*types.RepairAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attempt_number, category, message_excerpt, search_context,
		       fix_descriptor, mutation_outcome, success, exit_status,
		       raw_output, created_at
		FROM repair_attempts WHERE session_id = ? ORDER BY attempt_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var attempts []*types.RepairAttempt
	for rows.Next() {
		var (
			attempt  types.RepairAttempt
			category string
			outcome  string
			success  int
			verif    types.VerificationResult
		)
		if err := rows.Scan(&attempt.AttemptNumber, &category,
			&attempt.Classification.MessageExcerpt, &attempt.SearchContext,
			&attempt.FixDescriptor, &outcome, &success, &verif.ExitStatus,
			&verif.RawOutput, &attempt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		attempt.Classification.Category = types.ErrorCategory(category)
		attempt.MutationOutcome = types.MutationOutcome(outcome)
		verif.Success = success == 1
		attempt.Verification = &verif
		attempts = append(attempts, &attempt)
	}
	return attempts, rows.Err()
}

// UsageTotals aggregates agent usage for cost reporting.
type UsageTotals struct {
	Calls        int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// UsageSummary returns aggregate usage totals across all recorded calls.
func (s *Store) UsageSummary(ctx context.Context) (*UsageTotals, error) {
	var totals UsageTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cost_usd), 0)
		FROM agent_usage`).Scan(&totals.Calls, &totals.InputTokens,
		&totals.OutputTokens, &totals.CostUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize agent usage: %w", err)
	}
	return &totals, nil
}
