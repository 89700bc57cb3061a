package scheduler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/classboard/classboard/errors"
)

// ExecutionLog persists finalized execution results to SQLite for operator
// dashboards and the CLI history view. It is strictly a record: nothing is
// replayed from it on restart, and the in-memory History ledger remains the
// authoritative source for status queries. Writes are best-effort from the
// engine's perspective.
type ExecutionLog struct {
	db *sql.DB
}

// NewExecutionLog creates an execution log over an opened database
func NewExecutionLog(db *sql.DB) *ExecutionLog {
	return &ExecutionLog{db: db}
}

// ExecutionRecord is the persisted row shape. Times are RFC3339 strings.
type ExecutionRecord struct {
	ID           string  `json:"id"`
	JobID        string  `json:"job_id"`
	Status       string  `json:"status"`
	StartedAt    string  `json:"started_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	DurationMs   *int64  `json:"duration_ms,omitempty"`
	Result       *string `json:"result,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// Record inserts a finalized execution result
func (l *ExecutionLog) Record(res *ExecutionResult) error {
	query := `
		INSERT INTO job_executions (
			id, job_id, status, started_at, completed_at,
			duration_ms, result, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var completedAt, resultText, errorMessage interface{}
	var durationMs interface{}

	if res.CompletedAt != nil {
		completedAt = res.CompletedAt.Format(time.RFC3339)
		durationMs = res.Duration.Milliseconds()
	}
	if res.Result != nil {
		resultText = marshalResult(res.Result)
	}
	if res.Err != nil {
		errorMessage = res.Err.Error()
	}

	_, err := l.db.Exec(query,
		res.ID,
		res.JobID,
		string(res.Status),
		res.StartedAt.Format(time.RFC3339),
		completedAt,
		durationMs,
		resultText,
		errorMessage,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record execution")
	}
	return nil
}

// Get retrieves one execution record by id
func (l *ExecutionLog) Get(id string) (*ExecutionRecord, error) {
	query := `
		SELECT id, job_id, status, started_at, completed_at,
		       duration_ms, result, error_message, created_at
		FROM job_executions
		WHERE id = ?
	`

	rec, err := scanExecutionRecord(l.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "execution %q", id)
		}
		return nil, errors.Wrap(err, "failed to get execution")
	}
	return rec, nil
}

// ListByJob retrieves a job's execution records, newest first, with
// pagination and an optional status filter. Returns the page plus the
// total matching count.
func (l *ExecutionLog) ListByJob(jobID string, limit, offset int, statusFilter string) ([]*ExecutionRecord, int, error) {
	baseQuery := `
		FROM job_executions
		WHERE job_id = ?
	`
	args := []interface{}{jobID}

	if statusFilter != "" {
		baseQuery += " AND status = ?"
		args = append(args, statusFilter)
	}

	var total int
	if err := l.db.QueryRow("SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count executions")
	}

	query := `
		SELECT id, job_id, status, started_at, completed_at,
		       duration_ms, result, error_message, created_at
	` + baseQuery + `
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list executions")
	}
	defer rows.Close()

	var records []*ExecutionRecord
	for rows.Next() {
		rec, err := scanExecutionRecord(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan execution")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "error iterating executions")
	}

	return records, total, nil
}

// ListRecent retrieves finalized executions across all jobs completed since
// a given time, newest first. Avoids N+1 queries in polling dashboards.
func (l *ExecutionLog) ListRecent(since time.Time, limit int) ([]*ExecutionRecord, error) {
	query := `
		SELECT id, job_id, status, started_at, completed_at,
		       duration_ms, result, error_message, created_at
		FROM job_executions
		WHERE completed_at > ?
		ORDER BY completed_at DESC
		LIMIT ?
	`

	rows, err := l.db.Query(query, since.Format(time.RFC3339), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent executions")
	}
	defer rows.Close()

	var records []*ExecutionRecord
	for rows.Next() {
		rec, err := scanExecutionRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan execution")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating executions")
	}

	return records, nil
}

// JobSummary aggregates a job's persisted execution records
type JobSummary struct {
	JobID       string `json:"job_id"`
	Total       int    `json:"total"`
	Failed      int    `json:"failed"`
	LastStatus  string `json:"last_status"`
	LastStarted string `json:"last_started"`
}

// Summaries returns per-job aggregates over the whole record table, for the
// CLI's job listing. Jobs appear once they have executed at least once.
func (l *ExecutionLog) Summaries() ([]*JobSummary, error) {
	query := `
		SELECT job_id,
		       COUNT(*),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		       (SELECT status FROM job_executions latest
		        WHERE latest.job_id = job_executions.job_id
		        ORDER BY latest.started_at DESC LIMIT 1),
		       MAX(started_at)
		FROM job_executions
		GROUP BY job_id
		ORDER BY job_id
	`

	rows, err := l.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize executions")
	}
	defer rows.Close()

	var summaries []*JobSummary
	for rows.Next() {
		var s JobSummary
		if err := rows.Scan(&s.JobID, &s.Total, &s.Failed, &s.LastStatus, &s.LastStarted); err != nil {
			return nil, errors.Wrap(err, "failed to scan summary")
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating summaries")
	}

	return summaries, nil
}

// Cleanup deletes execution records older than the retention period.
// Returns the number of rows deleted. This is TTL housekeeping for the
// record table, unrelated to the in-memory history cap.
func (l *ExecutionLog) Cleanup(retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	result, err := l.db.Exec("DELETE FROM job_executions WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old executions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(deleted), nil
}

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExecutionRecord(row rowScanner) (*ExecutionRecord, error) {
	var rec ExecutionRecord
	var completedAt, resultText, errorMessage sql.NullString
	var durationMs sql.NullInt64

	err := row.Scan(
		&rec.ID,
		&rec.JobID,
		&rec.Status,
		&rec.StartedAt,
		&completedAt,
		&durationMs,
		&resultText,
		&errorMessage,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		rec.CompletedAt = &completedAt.String
	}
	if durationMs.Valid {
		rec.DurationMs = &durationMs.Int64
	}
	if resultText.Valid {
		rec.Result = &resultText.String
	}
	if errorMessage.Valid {
		rec.ErrorMessage = &errorMessage.String
	}

	return &rec, nil
}

// marshalResult renders a handler's opaque result for storage.
// JSON when possible, fmt fallback otherwise.
func marshalResult(result any) string {
	if data, err := json.Marshal(result); err == nil {
		return string(data)
	}
	return fmt.Sprint(result)
}
