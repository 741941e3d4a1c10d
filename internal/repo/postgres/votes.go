package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/repo"
	"github.com/lib/pq"
)

// InsertVoteIfAbsent records a vote unless the (user, poll) pair already has
// one. The UNIQUE (user_id, poll_id) constraint makes this safe under
// concurrent callers; the boolean reports whether this call won the insert.
func (s *Storage) InsertVoteIfAbsent(ctx context.Context, userID, pollID int64, option entity.VoteOption) (bool, error) {
	const op = "storage.postgres.InsertVoteIfAbsent"

	query := `INSERT INTO votes (user_id, poll_id, option) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, poll_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, userID, pollID, option)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return false, fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return inserted > 0, nil
}

func (s *Storage) CountsForPoll(ctx context.Context, pollID int64) (entity.VoteCounts, error) {
	const op = "storage.postgres.CountsForPoll"

	query := `SELECT
		COALESCE(SUM(CASE WHEN option = 'A' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option = 'B' THEN 1 ELSE 0 END), 0)
		FROM votes WHERE poll_id = $1`

	var counts entity.VoteCounts
	err := s.db.QueryRowContext(ctx, query, pollID).Scan(&counts.A, &counts.B)
	if err != nil {
		return entity.VoteCounts{}, fmt.Errorf("%s: %w", op, err)
	}

	return counts, nil
}

func (s *Storage) CountsForPolls(ctx context.Context, pollIDs []int64) (map[int64]entity.VoteCounts, error) {
	const op = "storage.postgres.CountsForPolls"

	query := `SELECT poll_id,
		COALESCE(SUM(CASE WHEN option = 'A' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option = 'B' THEN 1 ELSE 0 END), 0)
		FROM votes WHERE poll_id = ANY($1) GROUP BY poll_id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(pollIDs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	counts := make(map[int64]entity.VoteCounts, len(pollIDs))
	for rows.Next() {
		var pollID int64
		var c entity.VoteCounts
		if err := rows.Scan(&pollID, &c.A, &c.B); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		counts[pollID] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return counts, nil
}

func (s *Storage) VoteOf(ctx context.Context, userID, pollID int64) (*entity.VoteOption, error) {
	const op = "storage.postgres.VoteOf"

	query := `SELECT option FROM votes WHERE user_id = $1 AND poll_id = $2`

	var option entity.VoteOption
	err := s.db.QueryRowContext(ctx, query, userID, pollID).Scan(&option)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &option, nil
}

func (s *Storage) VotesOf(ctx context.Context, userID int64, pollIDs []int64) (map[int64]entity.VoteOption, error) {
	const op = "storage.postgres.VotesOf"

	query := `SELECT poll_id, option FROM votes WHERE user_id = $1 AND poll_id = ANY($2)`

	rows, err := s.db.QueryContext(ctx, query, userID, pq.Array(pollIDs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	votes := make(map[int64]entity.VoteOption)
	for rows.Next() {
		var pollID int64
		var option entity.VoteOption
		if err := rows.Scan(&pollID, &option); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		votes[pollID] = option
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return votes, nil
}

func (s *Storage) VoteHistory(ctx context.Context, userID int64) ([]entity.VoteHistoryItem, error) {
	const op = "storage.postgres.VoteHistory"

	query := `SELECT polls.id, polls.question, polls.type, votes.option, votes.created_at
		FROM votes
		JOIN polls ON polls.id = votes.poll_id
		WHERE votes.user_id = $1
		ORDER BY votes.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var history []entity.VoteHistoryItem
	for rows.Next() {
		var item entity.VoteHistoryItem
		if err := rows.Scan(&item.PollID, &item.Question, &item.Type, &item.Option, &item.VotedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		history = append(history, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return history, nil
}

func (s *Storage) SaveComment(ctx context.Context, pollID, userID int64, body string) (entity.Comment, error) {
	const op = "storage.postgres.SaveComment"

	query := `INSERT INTO comments (poll_id, user_id, body) VALUES ($1, $2, $3)
		RETURNING id, body, created_at`

	comment := entity.Comment{PollID: pollID, UserID: userID}
	err := s.db.QueryRowContext(ctx, query, pollID, userID, body).Scan(&comment.ID, &comment.Body, &comment.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return entity.Comment{}, fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
		}
		return entity.Comment{}, fmt.Errorf("%s: %w", op, err)
	}

	return comment, nil
}

func (s *Storage) CommentsByPollID(ctx context.Context, pollID int64) ([]entity.Comment, error) {
	const op = "storage.postgres.CommentsByPollID"

	query := `SELECT comments.id, comments.body, comments.created_at, users.email
		FROM comments
		JOIN users ON users.id = comments.user_id
		WHERE comments.poll_id = $1
		ORDER BY comments.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var comments []entity.Comment
	for rows.Next() {
		comment := entity.Comment{PollID: pollID}
		if err := rows.Scan(&comment.ID, &comment.Body, &comment.CreatedAt, &comment.AuthorEmail); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return comments, nil
}

func (s *Storage) Counts(ctx context.Context) (entity.SiteStats, error) {
	const op = "storage.postgres.Counts"

	var stats entity.SiteStats
	queries := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM users`, &stats.Users},
		{`SELECT COUNT(*) FROM polls`, &stats.Polls},
		{`SELECT COUNT(*) FROM votes`, &stats.Votes},
		{`SELECT COUNT(*) FROM polls WHERE status = 'approved' AND (ends_at IS NULL OR ends_at > NOW())`, &stats.ActivePolls},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return entity.SiteStats{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return stats, nil
}
