package platform

import (
	"context"
	"database/sql"
	"strings"

	"github.com/classboard/classboard/errors"
)

// Messages stores flagged messages and their analysis scores
type Messages struct {
	db *sql.DB
}

// NewMessages creates a message store over an opened database
func NewMessages(db *sql.DB) *Messages {
	return &Messages{db: db}
}

// Flag records a message for analysis
func (m *Messages) Flag(ctx context.Context, id, body string) error {
	_, err := m.db.ExecContext(ctx,
		"INSERT INTO flagged_messages (id, body) VALUES (?, ?)",
		id, body)
	if err != nil {
		return errors.Wrap(err, "failed to flag message")
	}
	return nil
}

// ReanalyzeFlagged scores every flagged message that has never been analyzed
// or was flagged again since its last analysis.
// Returns the number of messages scored.
func (m *Messages) ReanalyzeFlagged(ctx context.Context) (int, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, body
		FROM flagged_messages
		WHERE analyzed_at IS NULL OR analyzed_at < flagged_at
	`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to query flagged messages")
	}

	type pending struct{ id, body string }
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.body); err != nil {
			rows.Close()
			return 0, errors.Wrap(err, "failed to scan flagged message")
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "error iterating flagged messages")
	}

	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		_, err := m.db.ExecContext(ctx,
			"UPDATE flagged_messages SET score = ?, analyzed_at = ? WHERE id = ?",
			scoreMessage(p.body), nowUTC(), p.id)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to store score for message %s", p.id)
		}
	}
	return len(batch), nil
}

// Score returns a message's analysis score, or false if not yet analyzed
func (m *Messages) Score(ctx context.Context, id string) (float64, bool, error) {
	var score sql.NullFloat64
	err := m.db.QueryRowContext(ctx,
		"SELECT score FROM flagged_messages WHERE id = ?", id).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to get message score")
	}
	return score.Float64, score.Valid, nil
}

// flagTerms is the wordlist the heuristic scorer checks for.
// TODO(messaging): replace with the moderation model client once its batch
// endpoint is available.
var flagTerms = []string{"cheat", "answer key", "sell", "offensive"}

// scoreMessage is a crude density heuristic: matched terms over body length
func scoreMessage(body string) float64 {
	lowered := strings.ToLower(body)
	matches := 0
	for _, term := range flagTerms {
		matches += strings.Count(lowered, term)
	}
	words := len(strings.Fields(lowered))
	if words == 0 {
		return 0
	}
	score := float64(matches) / float64(words)
	if score > 1 {
		score = 1
	}
	return score
}
