package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	httpapp "github.com/faceoff-app/backend/internal/app/http"
	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/handlers"
	"github.com/faceoff-app/backend/internal/metrics"
	"github.com/faceoff-app/backend/internal/middleware"
	"github.com/faceoff-app/backend/internal/realtime"
	"github.com/faceoff-app/backend/internal/repo"
	"github.com/faceoff-app/backend/internal/routes"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the postgres storage, honoring the
// same contracts: unique emails, one vote per (user, poll), cascade on poll
// delete.
type memStore struct {
	mu        sync.Mutex
	users     map[int64]entity.User
	byEmail   map[string]int64
	polls     map[int64]entity.Poll
	votes     map[int64]map[int64]entity.VoteOption // pollID -> userID -> option
	comments  map[int64][]entity.Comment
	nextID    int64
	countsErr error // injected failure for vote count readbacks
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]entity.User),
		byEmail:  make(map[string]int64),
		polls:    make(map[int64]entity.Poll),
		votes:    make(map[int64]map[int64]entity.VoteOption),
		comments: make(map[int64][]entity.Comment),
	}
}

func (s *memStore) id() int64 { s.nextID++; return s.nextID }

func (s *memStore) SaveUser(_ context.Context, email string, passHash []byte, role entity.UserRole) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return 0, repo.ErrUserAlreadyExists
	}
	id := s.id()
	s.users[id] = entity.User{ID: id, Email: email, PassHash: passHash, Role: role, CreatedAt: time.Now()}
	s.byEmail[email] = id
	return id, nil
}

func (s *memStore) UserByEmail(_ context.Context, email string) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return entity.User{}, repo.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *memStore) UserByID(_ context.Context, id int64) (entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return entity.User{}, repo.ErrUserNotFound
	}
	return user, nil
}

func (s *memStore) SetUserBanned(_ context.Context, id int64, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repo.ErrUserNotFound
	}
	user.Banned = banned
	s.users[id] = user
	return nil
}

func (s *memStore) ListUsers(_ context.Context) ([]entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []entity.User
	for _, user := range s.users {
		users = append(users, user)
	}
	return users, nil
}

func (s *memStore) SavePoll(_ context.Context, poll entity.Poll) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll.ID = s.id()
	poll.CreatedAt = time.Now()
	s.polls[poll.ID] = poll
	return poll.ID, nil
}

func (s *memStore) GetPollByID(_ context.Context, id int64) (entity.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[id]
	if !ok {
		return entity.Poll{}, repo.ErrPollNotFound
	}
	return poll, nil
}

func (s *memStore) ListActivePolls(_ context.Context) ([]entity.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var polls []entity.Poll
	now := time.Now()
	for _, poll := range s.polls {
		if poll.Status != entity.PollStatusApproved {
			continue
		}
		if poll.EndsAt != nil && !poll.EndsAt.After(now) {
			continue
		}
		polls = append(polls, poll)
	}
	sort.Slice(polls, func(i, j int) bool { return polls[i].CreatedAt.After(polls[j].CreatedAt) })
	return polls, nil
}

func (s *memStore) ListPendingPolls(_ context.Context) ([]entity.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var polls []entity.Poll
	for _, poll := range s.polls {
		if poll.Status == entity.PollStatusPending {
			polls = append(polls, poll)
		}
	}
	return polls, nil
}

func (s *memStore) UpdatePollStatus(_ context.Context, id int64, status entity.PollStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[id]
	if !ok {
		return repo.ErrPollNotFound
	}
	poll.Status = status
	s.polls[id] = poll
	return nil
}

func (s *memStore) DeletePoll(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[id]; !ok {
		return repo.ErrPollNotFound
	}
	delete(s.polls, id)
	delete(s.votes, id)
	delete(s.comments, id)
	return nil
}

func (s *memStore) InsertVoteIfAbsent(_ context.Context, userID, pollID int64, option entity.VoteOption) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.votes[pollID]
	if !ok {
		byUser = make(map[int64]entity.VoteOption)
		s.votes[pollID] = byUser
	}
	if _, voted := byUser[userID]; voted {
		return false, nil
	}
	byUser[userID] = option
	return true, nil
}

func (s *memStore) CountsForPoll(_ context.Context, pollID int64) (entity.VoteCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countsErr != nil {
		return entity.VoteCounts{}, s.countsErr
	}
	var counts entity.VoteCounts
	for _, option := range s.votes[pollID] {
		if option == entity.VoteOptionA {
			counts.A++
		} else {
			counts.B++
		}
	}
	return counts, nil
}

func (s *memStore) CountsForPolls(ctx context.Context, pollIDs []int64) (map[int64]entity.VoteCounts, error) {
	result := make(map[int64]entity.VoteCounts)
	for _, id := range pollIDs {
		counts, err := s.CountsForPoll(ctx, id)
		if err != nil {
			return nil, err
		}
		result[id] = counts
	}
	return result, nil
}

func (s *memStore) VoteOf(_ context.Context, userID, pollID int64) (*entity.VoteOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if option, ok := s.votes[pollID][userID]; ok {
		return &option, nil
	}
	return nil, nil
}

func (s *memStore) VotesOf(_ context.Context, userID int64, pollIDs []int64) (map[int64]entity.VoteOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[int64]entity.VoteOption)
	for _, pollID := range pollIDs {
		if option, ok := s.votes[pollID][userID]; ok {
			result[pollID] = option
		}
	}
	return result, nil
}

func (s *memStore) VoteHistory(_ context.Context, userID int64) ([]entity.VoteHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []entity.VoteHistoryItem
	for pollID, byUser := range s.votes {
		if option, ok := byUser[userID]; ok {
			poll := s.polls[pollID]
			history = append(history, entity.VoteHistoryItem{
				PollID: pollID, Question: poll.Question, Type: poll.Type, Option: option,
			})
		}
	}
	return history, nil
}

func (s *memStore) SaveComment(_ context.Context, pollID, userID int64, body string) (entity.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[pollID]; !ok {
		return entity.Comment{}, repo.ErrPollNotFound
	}
	comment := entity.Comment{ID: s.id(), PollID: pollID, UserID: userID, Body: body, CreatedAt: time.Now()}
	s.comments[pollID] = append(s.comments[pollID], comment)
	return comment, nil
}

func (s *memStore) CommentsByPollID(_ context.Context, pollID int64) ([]entity.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments[pollID], nil
}

func (s *memStore) Counts(_ context.Context) (entity.SiteStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var votes int64
	for _, byUser := range s.votes {
		votes += int64(len(byUser))
	}
	return entity.SiteStats{
		Users: int64(len(s.users)),
		Polls: int64(len(s.polls)),
		Votes: votes,
	}, nil
}

type testServer struct {
	engine *gin.Engine
	store  *memStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	registry := prometheus.NewRegistry()
	votingMetrics := metrics.NewVotingMetrics("test", registry)

	hub := realtime.NewHub(log, votingMetrics.Subscribers)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	authService := services.NewAuth(log, store, store, []byte("test-secret"), time.Hour)
	votingService := services.NewVoting(log, store, store, store, store, hub, votingMetrics)

	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, votingService),
		Voting:   handlers.NewVotingHandler(votingService),
		Admin:    handlers.NewAdminHandler(votingService, authService),
		Realtime: handlers.NewRealtimeHandler(log, hub),
	}

	app := httpapp.NewApp(log, 0, []string{"http://localhost:3000"}, h, middleware.NewAuthMiddleware(authService), registry)

	return &testServer{engine: app.Engine(), store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "swordfish1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

// seedApprovedPoll bypasses moderation so voting tests start from an
// already-approved poll.
func (s *testServer) seedApprovedPoll(t *testing.T, creatorID int64, question string) int64 {
	t.Helper()

	a, b := "Cats", "Dogs"
	id, err := s.store.SavePoll(context.Background(), entity.Poll{
		Question:  question,
		Type:      entity.PollTypeTextText,
		OptionA:   entity.PollOption{Text: &a},
		OptionB:   entity.PollOption{Text: &b},
		Status:    entity.PollStatusApproved,
		CreatedBy: creatorID,
	})
	require.NoError(t, err)
	return id
}

func TestVoteEndpoint(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "voter@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	w := server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "A"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view entity.PollView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.TotalVotes)
	assert.Equal(t, entity.VotePercents{A: 100, B: 0}, view.Percents)
	require.NotNil(t, view.UserVote)
	assert.Equal(t, entity.VoteOptionA, *view.UserVote)

	// Re-voting with a different option succeeds but changes nothing.
	w = server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "B"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.TotalVotes)
	require.NotNil(t, view.UserVote)
	assert.Equal(t, entity.VoteOptionA, *view.UserVote)
}

func TestVoteEndpoint_Errors(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "voter@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	// No credential.
	w := server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), "", gin.H{"option": "A"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Bad option.
	w = server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "C"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown poll.
	w = server.do(t, http.MethodPost, "/api/polls/999/vote", token, gin.H{"option": "A"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVoteEndpoint_BannedUser(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "banned@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	require.NoError(t, server.store.SetUserBanned(context.Background(), 1, true))

	w := server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "A"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	counts, err := server.store.CountsForPoll(context.Background(), pollID)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Total())
}

func TestVoteEndpoint_ViewUnavailable(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "voter@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	server.store.mu.Lock()
	server.store.countsErr = errors.New("connection reset")
	server.store.mu.Unlock()

	// The insert wins but the readback fails: 503 telling the client to
	// refresh, never to vote again.
	w := server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "A"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "refresh instead of voting again")

	server.store.mu.Lock()
	server.store.countsErr = nil
	server.store.mu.Unlock()

	// The vote is durable despite the failed response.
	counts, err := server.store.CountsForPoll(context.Background(), pollID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total())

	// Retrying after recovery reports the original vote, not a second one.
	w = server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "B"})
	require.Equal(t, http.StatusOK, w.Code)

	var view entity.PollView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.TotalVotes)
	require.NotNil(t, view.UserVote)
	assert.Equal(t, entity.VoteOptionA, *view.UserVote)
}

func TestRealtimeEndpoint_NonWebsocketRequest(t *testing.T) {
	server := newTestServer(t)

	// A plain GET cannot be upgraded; the upgrade library writes the error
	// response itself and the handler must not write a second one.
	w := server.do(t, http.MethodGet, "/api/realtime", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, w.Code)
	assert.NotContains(t, w.Body.String(), "websocket upgrade failed")
}

func TestPollFeed_AnonymousAndViewer(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "voter@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	// Anonymous read: zero votes, no division errors, no userVote.
	w := server.do(t, http.MethodGet, "/api/polls", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var views []entity.PollView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, 0, views[0].TotalVotes)
	assert.Equal(t, entity.VotePercents{A: 0, B: 0}, views[0].Percents)
	assert.Nil(t, views[0].UserVote)

	// After voting, the credentialed feed reports the viewer's vote.
	server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "B"})

	w = server.do(t, http.MethodGet, "/api/polls", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.NotNil(t, views[0].UserVote)
	assert.Equal(t, entity.VoteOptionB, *views[0].UserVote)
}

func TestPollDetail(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "voter@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	w := server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/comments", pollID), token, gin.H{"body": "team cats"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = server.do(t, http.MethodGet, fmt.Sprintf("/api/polls/%d", pollID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Poll     entity.PollView  `json:"poll"`
		Comments []entity.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pollID, resp.Poll.ID)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "team cats", resp.Comments[0].Body)

	w = server.do(t, http.MethodGet, "/api/polls/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePollEndpoint_PendingForUsers(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "creator@example.com")

	w := server.do(t, http.MethodPost, "/api/polls", token, gin.H{
		"question":    "Tabs or spaces?",
		"type":        "text-text",
		"optionAText": "Tabs",
		"optionBText": "Spaces",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)

	// Pending polls stay out of the public feed.
	w = server.do(t, http.MethodGet, "/api/polls", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var views []entity.PollView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Empty(t, views)
}

func TestAdminRoutes_RoleGated(t *testing.T) {
	server := newTestServer(t)
	userToken := server.register(t, "pleb@example.com")

	w := server.do(t, http.MethodGet, "/api/admin/analytics", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Promote the user and retry.
	server.store.mu.Lock()
	admin := server.store.users[1]
	admin.Role = entity.RoleAdmin
	server.store.users[1] = admin
	server.store.mu.Unlock()

	w = server.do(t, http.MethodGet, "/api/admin/analytics", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats entity.SiteStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Users)
}

func TestAdminModerationFlow(t *testing.T) {
	server := newTestServer(t)
	creatorToken := server.register(t, "creator@example.com")
	adminToken := server.register(t, "admin@example.com")

	server.store.mu.Lock()
	admin := server.store.users[2]
	admin.Role = entity.RoleAdmin
	server.store.users[2] = admin
	server.store.mu.Unlock()

	w := server.do(t, http.MethodPost, "/api/polls", creatorToken, gin.H{
		"question": "Tabs or spaces?", "type": "text-text", "optionAText": "Tabs", "optionBText": "Spaces",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = server.do(t, http.MethodGet, "/api/admin/polls/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []entity.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)

	w = server.do(t, http.MethodPost, fmt.Sprintf("/api/admin/polls/%d/approve", created.ID), adminToken, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code)

	w = server.do(t, http.MethodGet, "/api/polls", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var views []entity.PollView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Len(t, views, 1)

	w = server.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/polls/%d", created.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestVoteHistoryEndpoint(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "voter@example.com")
	pollID := server.seedApprovedPoll(t, 1, "Cats or Dogs?")

	server.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%d/vote", pollID), token, gin.H{"option": "A"})

	w := server.do(t, http.MethodGet, "/api/users/me/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history []entity.VoteHistoryItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, pollID, history[0].PollID)
	assert.Equal(t, entity.VoteOptionA, history[0].Option)
}
