package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const commentColumns = `id, post_id, author_id, parent_id, text, deleted, accepted_answer, created_at, updated_at`

// PostgresStore implements all store contracts on Postgres. The database's
// transaction isolation is the only mutation-safety mechanism.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping reports backend health for the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, c Comment) (Comment, error) {
	if strings.TrimSpace(c.Text) == "" {
		return Comment{}, fmt.Errorf("empty text: %w", ErrValidation)
	}
	if c.PostID == "" || c.AuthorID == "" {
		return Comment{}, fmt.Errorf("post id and author id are required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Comment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var postExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, c.PostID).Scan(&postExists); err != nil {
		return Comment{}, err
	}
	if !postExists {
		return Comment{}, fmt.Errorf("post %s: %w", c.PostID, ErrValidation)
	}

	if c.ParentID != nil {
		var parentPostID string
		err := tx.QueryRow(ctx, `SELECT post_id FROM comments WHERE id = $1`, *c.ParentID).Scan(&parentPostID)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && parentPostID != c.PostID) {
			return Comment{}, fmt.Errorf("parent comment %s: %w", *c.ParentID, ErrNotFound)
		}
		if err != nil {
			return Comment{}, err
		}
	}

	const insert = `INSERT INTO comments (post_id, author_id, parent_id, text)
	                VALUES ($1, $2, $3, $4)
	                RETURNING ` + commentColumns
	out, err := scanComment(tx.QueryRow(ctx, insert, c.PostID, c.AuthorID, c.ParentID, c.Text))
	if err != nil {
		return Comment{}, err
	}

	// Authors start their own comment at a score of 1.
	_, err = tx.Exec(ctx,
		`INSERT INTO votes (user_id, target_id, target_type, value) VALUES ($1, $2, $3, $4)`,
		c.AuthorID, out.ID, TargetComment, VoteUp)
	if err != nil {
		return Comment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Comment{}, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, commentID string) (Comment, error) {
	const q = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	c, err := scanComment(s.pool.QueryRow(ctx, q, commentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return c, err
}

func (s *PostgresStore) SoftDelete(ctx context.Context, commentID, requesterID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var authorID string
	err = tx.QueryRow(ctx, `SELECT author_id FROM comments WHERE id = $1`, commentID).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if authorID != requesterID {
		return fmt.Errorf("only the author may delete a comment: %w", ErrForbidden)
	}

	_, err = tx.Exec(ctx,
		`UPDATE comments SET deleted = TRUE, text = '', updated_at = now() WHERE id = $1`, commentID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListTopLevel(ctx context.Context, postID string, limit int, cursor string) ([]Comment, error) {
	if cursor == "" {
		const q = `SELECT ` + commentColumns + `
		           FROM comments
		           WHERE post_id = $1 AND parent_id IS NULL
		           ORDER BY created_at DESC, id DESC
		           LIMIT $2`
		return s.scanComments(ctx, q, postID, limit)
	}

	var cursorAt time.Time
	var cursorID string
	err := s.pool.QueryRow(ctx,
		`SELECT created_at, id FROM comments WHERE id = $1 AND post_id = $2 AND parent_id IS NULL`,
		cursor, postID).Scan(&cursorAt, &cursorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("unknown cursor %s: %w", cursor, ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	const q = `SELECT ` + commentColumns + `
	           FROM comments
	           WHERE post_id = $1 AND parent_id IS NULL
	             AND (created_at, id) < ($3, $4)
	           ORDER BY created_at DESC, id DESC
	           LIMIT $2`
	return s.scanComments(ctx, q, postID, limit, cursorAt, cursorID)
}

func (s *PostgresStore) ListReplies(ctx context.Context, parentID string, limit, skip int) ([]Comment, error) {
	const q = `SELECT ` + commentColumns + `
	           FROM comments
	           WHERE parent_id = $1
	           ORDER BY created_at DESC, id DESC
	           LIMIT $2 OFFSET $3`
	return s.scanComments(ctx, q, parentID, limit, skip)
}

func (s *PostgresStore) CountReplies(ctx context.Context, parentIDs []string) (map[string]int, error) {
	const q = `SELECT parent_id, count(*)
	           FROM comments
	           WHERE parent_id = ANY($1)
	           GROUP BY parent_id`
	rows, err := s.pool.Query(ctx, q, parentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) Depth(ctx context.Context, commentID string) (int, error) {
	const q = `WITH RECURSIVE chain AS (
	             SELECT id, parent_id, 0 AS depth FROM comments WHERE id = $1
	             UNION ALL
	             SELECT c.id, c.parent_id, chain.depth + 1
	             FROM comments c JOIN chain ON c.id = chain.parent_id
	           )
	           SELECT max(depth) FROM chain`
	var depth *int
	if err := s.pool.QueryRow(ctx, q, commentID).Scan(&depth); err != nil {
		return 0, err
	}
	if depth == nil {
		return 0, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return *depth, nil
}

func (s *PostgresStore) scanComments(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ParentID,
		&c.Text, &c.Deleted, &c.AcceptedAnswer, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
