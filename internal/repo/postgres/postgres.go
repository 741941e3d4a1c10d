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

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Storage struct {
	db *sql.DB
}

func New(postgresURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(ctx context.Context, email string, passHash []byte, role entity.UserRole) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `INSERT INTO users (email, pass_hash, role) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query, email, passHash, role).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, repo.ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (entity.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `SELECT id, email, pass_hash, role, banned, created_at FROM users WHERE email = $1`

	var user entity.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.PassHash, &user.Role, &user.Banned, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, fmt.Errorf("%s: %w", op, repo.ErrUserNotFound)
		}
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UserByID(ctx context.Context, id int64) (entity.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT id, email, pass_hash, role, banned, created_at FROM users WHERE id = $1`

	var user entity.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.PassHash, &user.Role, &user.Banned, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, fmt.Errorf("%s: %w", op, repo.ErrUserNotFound)
		}
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) SetUserBanned(ctx context.Context, id int64, banned bool) error {
	const op = "storage.postgres.SetUserBanned"

	query := `UPDATE users SET banned = $1 WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, banned, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, repo.ErrUserNotFound)
	}

	return nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]entity.User, error) {
	const op = "storage.postgres.ListUsers"

	query := `SELECT id, email, pass_hash, role, banned, created_at FROM users ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		var user entity.User
		if err := rows.Scan(&user.ID, &user.Email, &user.PassHash, &user.Role, &user.Banned, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return users, nil
}

const pollColumns = `id, question, type, option_a_text, option_a_image_url, option_b_text, option_b_image_url, status, created_by, ends_at, created_at, updated_at`

func scanPoll(row interface{ Scan(...any) error }) (entity.Poll, error) {
	var poll entity.Poll
	err := row.Scan(
		&poll.ID, &poll.Question, &poll.Type,
		&poll.OptionA.Text, &poll.OptionA.ImageURL,
		&poll.OptionB.Text, &poll.OptionB.ImageURL,
		&poll.Status, &poll.CreatedBy, &poll.EndsAt, &poll.CreatedAt, &poll.UpdatedAt,
	)
	return poll, err
}

func (s *Storage) SavePoll(ctx context.Context, poll entity.Poll) (int64, error) {
	const op = "storage.postgres.SavePoll"

	query := `INSERT INTO polls
		(question, type, option_a_text, option_a_image_url, option_b_text, option_b_image_url, status, created_by, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		poll.Question, poll.Type,
		poll.OptionA.Text, poll.OptionA.ImageURL,
		poll.OptionB.Text, poll.OptionB.ImageURL,
		poll.Status, poll.CreatedBy, poll.EndsAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetPollByID(ctx context.Context, id int64) (entity.Poll, error) {
	const op = "storage.postgres.GetPollByID"

	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`

	poll, err := scanPoll(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Poll{}, fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
		}
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	return poll, nil
}

// ListActivePolls returns approved polls that have not expired, newest first.
func (s *Storage) ListActivePolls(ctx context.Context) ([]entity.Poll, error) {
	const op = "storage.postgres.ListActivePolls"

	query := `SELECT ` + pollColumns + ` FROM polls
		WHERE status = 'approved' AND (ends_at IS NULL OR ends_at > NOW())
		ORDER BY created_at DESC`

	return s.listPolls(ctx, op, query)
}

func (s *Storage) ListPendingPolls(ctx context.Context) ([]entity.Poll, error) {
	const op = "storage.postgres.ListPendingPolls"

	query := `SELECT ` + pollColumns + ` FROM polls WHERE status = 'pending' ORDER BY created_at DESC`

	return s.listPolls(ctx, op, query)
}

func (s *Storage) listPolls(ctx context.Context, op, query string, args ...any) ([]entity.Poll, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var polls []entity.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		polls = append(polls, poll)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return polls, nil
}

func (s *Storage) UpdatePollStatus(ctx context.Context, id int64, status entity.PollStatus) error {
	const op = "storage.postgres.UpdatePollStatus"

	query := `UPDATE polls SET status = $1, updated_at = NOW() WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
	}

	return nil
}

// DeletePoll removes a poll; votes and comments go with it via ON DELETE CASCADE.
func (s *Storage) DeletePoll(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeletePoll"

	query := `DELETE FROM polls WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, repo.ErrPollNotFound)
	}

	return nil
}
