package platform

import (
	"context"
	"database/sql"

	"github.com/classboard/classboard/errors"
)

// Rewards stores point awards and the leaderboards computed from them.
// Awards are append-only events; standings are a derived table rebuilt
// wholesale by the leaderboard job so reads stay cheap.
type Rewards struct {
	db *sql.DB
}

// NewRewards creates a reward store over an opened database
func NewRewards(db *sql.DB) *Rewards {
	return &Rewards{db: db}
}

// Award records points for a student within a scope (a class or school id)
func (r *Rewards) Award(ctx context.Context, scope, studentID string, points int) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO reward_events (scope, student_id, points) VALUES (?, ?, ?)",
		scope, studentID, points)
	if err != nil {
		return errors.Wrap(err, "failed to record award")
	}
	return nil
}

// Standing is one row of a computed leaderboard
type Standing struct {
	StudentID string `json:"student_id"`
	Points    int    `json:"points"`
	Rank      int    `json:"rank"`
}

// Standings returns the computed leaderboard for a scope, best rank first
func (r *Rewards) Standings(ctx context.Context, scope string) ([]Standing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, points, rank
		FROM leaderboard_standings
		WHERE scope = ?
		ORDER BY rank ASC
	`, scope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query standings")
	}
	defer rows.Close()

	var standings []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.StudentID, &s.Points, &s.Rank); err != nil {
			return nil, errors.Wrap(err, "failed to scan standing")
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// RebuildLeaderboards recomputes every scope's standings from the award
// events in a single transaction, so readers never observe a partial build.
// Returns the number of scopes rebuilt.
func (r *Rewards) RebuildLeaderboards(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin rebuild")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM leaderboard_standings"); err != nil {
		return 0, errors.Wrap(err, "failed to clear standings")
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leaderboard_standings (scope, student_id, points, rank, computed_at)
		SELECT scope,
		       student_id,
		       SUM(points),
		       RANK() OVER (PARTITION BY scope ORDER BY SUM(points) DESC),
		       datetime('now')
		FROM reward_events
		GROUP BY scope, student_id
	`); err != nil {
		return 0, errors.Wrap(err, "failed to rebuild standings")
	}

	var scopes int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT scope) FROM leaderboard_standings").Scan(&scopes); err != nil {
		return 0, errors.Wrap(err, "failed to count scopes")
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit rebuild")
	}
	return scopes, nil
}
