package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Outcome values stored for each submission.
const (
	OutcomeAccepted          = "accepted"
	OutcomeCompleted         = "completed"
	OutcomeRejected          = "rejected"
	OutcomeResourceExhausted = "resource_exhausted"
)

// Entry is one submission row.
type Entry struct {
	Seq            int64
	ID             string
	JobName        string
	Kind           string
	Variant        string
	DatasetID      int
	DistributionID int
	ParameterKey   string
	ArtifactPath   string
	Mode           string
	Command        string
	Outcome        string
	Error          string
	SubmittedAt    time.Time
}

// Record appends e. Writing the same id twice is a no-op.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("record submission: empty id")
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO submissions
		(id, job_name, kind, variant, dataset_id, distribution_id, parameter_key,
		 artifact_path, mode, command, outcome, error, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.JobName,
		e.Kind,
		e.Variant,
		e.DatasetID,
		e.DistributionID,
		e.ParameterKey,
		e.ArtifactPath,
		e.Mode,
		e.Command,
		e.Outcome,
		e.Error,
		e.SubmittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	DatasetID      *int
	DistributionID *int
	Kind           string
	Outcome        string
	Limit          int
}

// List returns matching submissions in submission order.
func (l *Ledger) List(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any
	if f.DatasetID != nil {
		where = append(where, "dataset_id = ?")
		args = append(args, *f.DatasetID)
	}
	if f.DistributionID != nil {
		where = append(where, "distribution_id = ?")
		args = append(args, *f.DistributionID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}

	query := `
		SELECT seq, id, job_name, kind, variant, dataset_id, distribution_id, parameter_key,
		       artifact_path, mode, command, outcome, error, submitted_at
		FROM submissions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var submittedAt string
		if err := rows.Scan(&e.Seq, &e.ID, &e.JobName, &e.Kind, &e.Variant, &e.DatasetID, &e.DistributionID,
			&e.ParameterKey, &e.ArtifactPath, &e.Mode, &e.Command, &e.Outcome, &e.Error, &submittedAt); err != nil {
			return nil, fmt.Errorf("list submissions: scan: %w", err)
		}
		e.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt)
		if err != nil {
			return nil, fmt.Errorf("list submissions: parse time: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return entries, nil
}
