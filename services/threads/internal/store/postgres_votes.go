package store

import (
	"context"
	"fmt"
)

// Vote applies the toggle algorithm inside one transaction. The unique
// constraint on (user_id, target_id, target_type) makes concurrent calls
// for the same pair resolve to a single row or none, never two.
func (s *PostgresStore) Vote(ctx context.Context, target TargetType, targetID, userID string, value VoteValue) error {
	if target != TargetPost && target != TargetComment {
		return fmt.Errorf("target type %q: %w", target, ErrValidation)
	}
	if value != VoteUp && value != VoteDown {
		return fmt.Errorf("vote value %d: %w", value, ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var table string
	if target == TargetPost {
		table = "posts"
	} else {
		table = "comments"
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, targetID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", target, targetID, ErrNotFound)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO votes (user_id, target_id, target_type, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, target_id, target_type) DO NOTHING`,
		userID, targetID, target, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// A row already exists: same value removes it, different value flips it.
		tag, err = tx.Exec(ctx,
			`DELETE FROM votes WHERE user_id = $1 AND target_id = $2 AND target_type = $3 AND value = $4`,
			userID, targetID, target, value)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			_, err = tx.Exec(ctx,
				`UPDATE votes SET value = $4 WHERE user_id = $1 AND target_id = $2 AND target_type = $3`,
				userID, targetID, target, value)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Score(ctx context.Context, target TargetType, targetID string) (int, error) {
	var score int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(value), 0) FROM votes WHERE target_type = $1 AND target_id = $2`,
		target, targetID).Scan(&score)
	return score, err
}

func (s *PostgresStore) Scores(ctx context.Context, target TargetType, targetIDs []string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT target_id, COALESCE(SUM(value), 0)
		 FROM votes
		 WHERE target_type = $1 AND target_id = ANY($2)
		 GROUP BY target_id`,
		target, targetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var id string
		var score int
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		scores[id] = score
	}
	return scores, rows.Err()
}
