package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/middleware"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type VotingHandler struct {
	votingService *services.Voting
}

func NewVotingHandler(votingService *services.Voting) *VotingHandler {
	return &VotingHandler{votingService: votingService}
}

type CreatePollRequest struct {
	Question        string     `json:"question" binding:"required"`
	Type            string     `json:"type" binding:"required"`
	OptionAText     string     `json:"optionAText"`
	OptionBText     string     `json:"optionBText"`
	OptionAImageURL string     `json:"optionAImageUrl"`
	OptionBImageURL string     `json:"optionBImageUrl"`
	EndsAt          *time.Time `json:"endsAt"`
}

type VoteRequest struct {
	Option string `json:"option" binding:"required"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

func pollIDParam(c *gin.Context) (int64, bool) {
	pollID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return 0, false
	}
	return pollID, true
}

func viewerFromContext(c *gin.Context) *entity.Identity {
	if identity, ok := middleware.IdentityFromContext(c); ok {
		return &identity
	}
	return nil
}

// ListPolls handles GET /polls: the public feed of approved, unexpired polls.
func (v *VotingHandler) ListPolls(c *gin.Context) {
	views, err := v.votingService.ListPollViews(c.Request.Context(), viewerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// GetPoll handles GET /polls/:id: one poll view plus its comments.
func (v *VotingHandler) GetPoll(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}

	view, err := v.votingService.PollView(c.Request.Context(), pollID, viewerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	comments, err := v.votingService.PollComments(c.Request.Context(), pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	if comments == nil {
		comments = []entity.Comment{}
	}

	c.JSON(http.StatusOK, gin.H{"poll": view, "comments": comments})
}

func (v *VotingHandler) CreatePoll(c *gin.Context) {
	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and type are required"})
		return
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	poll, err := v.votingService.CreatePoll(c.Request.Context(), identity, services.CreatePollInput{
		Question:        req.Question,
		Type:            req.Type,
		OptionAText:     req.OptionAText,
		OptionBText:     req.OptionBText,
		OptionAImageURL: req.OptionAImageURL,
		OptionBImageURL: req.OptionBImageURL,
		EndsAt:          req.EndsAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": poll.ID, "status": poll.Status})
}

// Vote handles POST /polls/:id/vote. A repeated vote by the same user is not
// an error: the response reflects the original vote in userVote.
func (v *VotingHandler) Vote(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option must be 'A' or 'B'"})
		return
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, err := v.votingService.RecordVote(c.Request.Context(), identity, pollID, req.Option)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (v *VotingHandler) AddComment(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment body is required"})
		return
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	comment, err := v.votingService.AddComment(c.Request.Context(), identity, pollID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}
