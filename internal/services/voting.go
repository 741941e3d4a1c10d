package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/metrics"
)

var (
	ErrValidation = errors.New("validation error")

	// ErrImageTooLarge applies to inline data URLs above the size cap.
	ErrImageTooLarge = errors.New("image data is too large")

	// ErrViewUnavailable means a vote insert completed but the fresh view
	// could not be read back. The vote may already be durably recorded, so
	// the caller must re-read rather than re-vote.
	ErrViewUnavailable = errors.New("result view unavailable")
)

const maxDataURLLength = 1_500_000

type PollStorage interface {
	SavePoll(ctx context.Context, poll entity.Poll) (int64, error)
	GetPollByID(ctx context.Context, id int64) (entity.Poll, error)
	ListActivePolls(ctx context.Context) ([]entity.Poll, error)
	ListPendingPolls(ctx context.Context) ([]entity.Poll, error)
	UpdatePollStatus(ctx context.Context, id int64, status entity.PollStatus) error
	DeletePoll(ctx context.Context, id int64) error
}

// VoteLedger is the single shared mutable resource of the voting core.
// Uniqueness of (user, poll) is enforced by the storage layer itself, so
// InsertVoteIfAbsent is safe under arbitrary concurrent callers.
type VoteLedger interface {
	InsertVoteIfAbsent(ctx context.Context, userID, pollID int64, option entity.VoteOption) (bool, error)
	CountsForPoll(ctx context.Context, pollID int64) (entity.VoteCounts, error)
	CountsForPolls(ctx context.Context, pollIDs []int64) (map[int64]entity.VoteCounts, error)
	VoteOf(ctx context.Context, userID, pollID int64) (*entity.VoteOption, error)
	VotesOf(ctx context.Context, userID int64, pollIDs []int64) (map[int64]entity.VoteOption, error)
	VoteHistory(ctx context.Context, userID int64) ([]entity.VoteHistoryItem, error)
}

type CommentStorage interface {
	SaveComment(ctx context.Context, pollID, userID int64, body string) (entity.Comment, error)
	CommentsByPollID(ctx context.Context, pollID int64) ([]entity.Comment, error)
}

type StatsProvider interface {
	Counts(ctx context.Context) (entity.SiteStats, error)
}

type Broadcaster interface {
	Publish(view entity.PollView)
}

type Voting struct {
	log            *slog.Logger
	pollStorage    PollStorage
	voteLedger     VoteLedger
	commentStorage CommentStorage
	statsProvider  StatsProvider
	broadcaster    Broadcaster
	metrics        *metrics.VotingMetrics
}

func NewVoting(
	log *slog.Logger,
	pollStorage PollStorage,
	voteLedger VoteLedger,
	commentStorage CommentStorage,
	statsProvider StatsProvider,
	broadcaster Broadcaster,
	votingMetrics *metrics.VotingMetrics,
) *Voting {
	return &Voting{
		log:            log,
		pollStorage:    pollStorage,
		voteLedger:     voteLedger,
		commentStorage: commentStorage,
		statsProvider:  statsProvider,
		broadcaster:    broadcaster,
		metrics:        votingMetrics,
	}
}

// RecordVote is the vote write path: validate, insert-if-absent, recompute
// the fresh view for this voter, publish it, return it. A duplicate attempt
// (any option) is a silent no-op: first vote is final, and the returned view
// reports the persisted option in UserVote.
func (v *Voting) RecordVote(ctx context.Context, identity entity.Identity, pollID int64, option string) (entity.PollView, error) {
	const op = "services.Voting.RecordVote"

	voteOption, err := parseVoteOption(option)
	if err != nil {
		return entity.PollView{}, err
	}

	if identity.Banned {
		return entity.PollView{}, fmt.Errorf("%s: %w", op, ErrUserBanned)
	}

	poll, err := v.pollStorage.GetPollByID(ctx, pollID)
	if err != nil {
		return entity.PollView{}, fmt.Errorf("%s: %w", op, err)
	}

	inserted, err := v.voteLedger.InsertVoteIfAbsent(ctx, identity.UserID, pollID, voteOption)
	if err != nil {
		return entity.PollView{}, fmt.Errorf("%s: %w", op, err)
	}

	if inserted {
		v.metrics.VotesRecorded.WithLabelValues(string(voteOption)).Inc()
	} else {
		v.metrics.VotesDuplicate.Inc()
	}

	view, err := v.viewForPoll(ctx, poll, &identity.UserID)
	if err != nil {
		// The insert may have succeeded; the caller must re-read, not re-vote.
		v.log.Error("vote recorded but view recompute failed",
			slog.Int64("poll_id", pollID), slog.String("error", err.Error()))
		return entity.PollView{}, fmt.Errorf("%s: %w", op, ErrViewUnavailable)
	}

	v.broadcaster.Publish(view)
	v.metrics.BroadcastsSent.Inc()

	return view, nil
}

// PollView computes the current view of one poll. The viewer is optional;
// when present the view reports which option, if any, they already cast.
func (v *Voting) PollView(ctx context.Context, pollID int64, viewer *entity.Identity) (entity.PollView, error) {
	const op = "services.Voting.PollView"

	poll, err := v.pollStorage.GetPollByID(ctx, pollID)
	if err != nil {
		return entity.PollView{}, fmt.Errorf("%s: %w", op, err)
	}

	var viewerID *int64
	if viewer != nil {
		viewerID = &viewer.UserID
	}

	view, err := v.viewForPoll(ctx, poll, viewerID)
	if err != nil {
		return entity.PollView{}, fmt.Errorf("%s: %w", op, err)
	}

	return view, nil
}

// ListPollViews computes views for the public feed: approved polls that have
// not expired, newest first.
func (v *Voting) ListPollViews(ctx context.Context, viewer *entity.Identity) ([]entity.PollView, error) {
	const op = "services.Voting.ListPollViews"

	polls, err := v.pollStorage.ListActivePolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(polls) == 0 {
		return []entity.PollView{}, nil
	}

	ids := make([]int64, len(polls))
	for i, poll := range polls {
		ids[i] = poll.ID
	}

	counts, err := v.voteLedger.CountsForPolls(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var viewerVotes map[int64]entity.VoteOption
	if viewer != nil {
		viewerVotes, err = v.voteLedger.VotesOf(ctx, viewer.UserID, ids)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	views := make([]entity.PollView, len(polls))
	for i, poll := range polls {
		var userVote *entity.VoteOption
		if option, ok := viewerVotes[poll.ID]; ok {
			userVote = &option
		}
		views[i] = buildView(poll, counts[poll.ID], userVote)
	}

	return views, nil
}

func (v *Voting) viewForPoll(ctx context.Context, poll entity.Poll, viewerID *int64) (entity.PollView, error) {
	counts, err := v.voteLedger.CountsForPoll(ctx, poll.ID)
	if err != nil {
		return entity.PollView{}, err
	}

	var userVote *entity.VoteOption
	if viewerID != nil {
		userVote, err = v.voteLedger.VoteOf(ctx, *viewerID, poll.ID)
		if err != nil {
			return entity.PollView{}, err
		}
	}

	return buildView(poll, counts, userVote), nil
}

// buildView derives the read model. Percentages are rounded independently,
// so they may sum to 99, 100 or 101; a poll with no votes yields 0/0.
func buildView(poll entity.Poll, counts entity.VoteCounts, userVote *entity.VoteOption) entity.PollView {
	total := counts.Total()

	var percentA, percentB int
	if total > 0 {
		percentA = int(math.Round(float64(counts.A) / float64(total) * 100))
		percentB = int(math.Round(float64(counts.B) / float64(total) * 100))
	}

	return entity.PollView{
		ID:         poll.ID,
		Question:   poll.Question,
		Type:       poll.Type,
		OptionA:    poll.OptionA,
		OptionB:    poll.OptionB,
		Status:     poll.Status,
		EndsAt:     poll.EndsAt,
		CreatedAt:  poll.CreatedAt,
		TotalVotes: total,
		Votes:      entity.VoteTotals{A: counts.A, B: counts.B},
		Percents:   entity.VotePercents{A: percentA, B: percentB},
		UserVote:   userVote,
	}
}

func parseVoteOption(option string) (entity.VoteOption, error) {
	switch option {
	case string(entity.VoteOptionA):
		return entity.VoteOptionA, nil
	case string(entity.VoteOptionB):
		return entity.VoteOptionB, nil
	default:
		return "", fmt.Errorf("%w: option must be 'A' or 'B'", ErrValidation)
	}
}

type CreatePollInput struct {
	Question        string
	Type            string
	OptionAText     string
	OptionBText     string
	OptionAImageURL string
	OptionBImageURL string
	EndsAt          *time.Time
}

// CreatePoll validates and stores a new poll. Polls from regular users start
// pending and only enter the feed after moderation; admin submissions are
// approved immediately.
func (v *Voting) CreatePoll(ctx context.Context, identity entity.Identity, input CreatePollInput) (entity.Poll, error) {
	const op = "services.Voting.CreatePoll"

	if input.Question == "" || input.Type == "" {
		return entity.Poll{}, fmt.Errorf("%w: question and type are required", ErrValidation)
	}

	pollType, err := parsePollType(input.Type)
	if err != nil {
		return entity.Poll{}, err
	}

	optionA, err := buildPollOption(input.OptionAText, input.OptionAImageURL)
	if err != nil {
		return entity.Poll{}, err
	}
	optionB, err := buildPollOption(input.OptionBText, input.OptionBImageURL)
	if err != nil {
		return entity.Poll{}, err
	}

	status := entity.PollStatusPending
	if identity.IsAdmin() {
		status = entity.PollStatusApproved
	}

	poll := entity.Poll{
		Question:  strings.TrimSpace(input.Question),
		Type:      pollType,
		OptionA:   optionA,
		OptionB:   optionB,
		Status:    status,
		CreatedBy: identity.UserID,
		EndsAt:    input.EndsAt,
	}

	id, err := v.pollStorage.SavePoll(ctx, poll)
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	poll.ID = id

	v.log.Info("poll created", slog.Int64("poll_id", id), slog.String("status", string(status)))

	return poll, nil
}

func parsePollType(value string) (entity.PollType, error) {
	switch entity.PollType(value) {
	case entity.PollTypeTextText, entity.PollTypeImageImage, entity.PollTypeTextImage:
		return entity.PollType(value), nil
	default:
		return "", fmt.Errorf("%w: unknown poll type", ErrValidation)
	}
}

func buildPollOption(text, imageURL string) (entity.PollOption, error) {
	normalized, err := normalizeImageURL(imageURL)
	if err != nil {
		return entity.PollOption{}, err
	}

	var option entity.PollOption
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		option.Text = &trimmed
	}
	option.ImageURL = normalized

	if option.Text == nil && option.ImageURL == nil {
		return entity.PollOption{}, fmt.Errorf("%w: each option needs text or an image", ErrValidation)
	}

	return option, nil
}

// normalizeImageURL accepts http(s) URLs and bounded data:image/ URLs.
func normalizeImageURL(value string) (*string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "data:image/") {
		if len(trimmed) > maxDataURLLength {
			return nil, ErrImageTooLarge
		}
		return &trimmed, nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid image URL", ErrValidation)
	}

	return &trimmed, nil
}

func (v *Voting) PollComments(ctx context.Context, pollID int64) ([]entity.Comment, error) {
	const op = "services.Voting.PollComments"

	comments, err := v.commentStorage.CommentsByPollID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return comments, nil
}

func (v *Voting) AddComment(ctx context.Context, identity entity.Identity, pollID int64, body string) (entity.Comment, error) {
	const op = "services.Voting.AddComment"

	trimmed := strings.TrimSpace(body)
	if len(trimmed) < 2 {
		return entity.Comment{}, fmt.Errorf("%w: comment is too short", ErrValidation)
	}

	comment, err := v.commentStorage.SaveComment(ctx, pollID, identity.UserID, trimmed)
	if err != nil {
		return entity.Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	comment.AuthorEmail = identity.Email

	return comment, nil
}

func (v *Voting) VoteHistory(ctx context.Context, userID int64) ([]entity.VoteHistoryItem, error) {
	const op = "services.Voting.VoteHistory"

	history, err := v.voteLedger.VoteHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return history, nil
}

func (v *Voting) PendingPolls(ctx context.Context) ([]entity.Poll, error) {
	const op = "services.Voting.PendingPolls"

	polls, err := v.pollStorage.ListPendingPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return polls, nil
}

// SetPollStatus is the moderation path: anything other than "rejected"
// approves the poll.
func (v *Voting) SetPollStatus(ctx context.Context, pollID int64, status string) (entity.PollStatus, error) {
	const op = "services.Voting.SetPollStatus"

	next := entity.PollStatusApproved
	if status == string(entity.PollStatusRejected) {
		next = entity.PollStatusRejected
	}

	if err := v.pollStorage.UpdatePollStatus(ctx, pollID, next); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return next, nil
}

func (v *Voting) DeletePoll(ctx context.Context, pollID int64) error {
	const op = "services.Voting.DeletePoll"

	if err := v.pollStorage.DeletePoll(ctx, pollID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	v.log.Info("poll deleted", slog.Int64("poll_id", pollID))

	return nil
}

func (v *Voting) SiteStats(ctx context.Context) (entity.SiteStats, error) {
	const op = "services.Voting.SiteStats"

	stats, err := v.statsProvider.Counts(ctx)
	if err != nil {
		return entity.SiteStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}
