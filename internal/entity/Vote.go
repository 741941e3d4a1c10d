package entity

import "time"

type VoteOption string

const (
	VoteOptionA VoteOption = "A"
	VoteOptionB VoteOption = "B"
)

type Vote struct {
	ID        int64
	UserID    int64
	PollID    int64
	Option    VoteOption
	CreatedAt time.Time
}

// VoteCounts is a per-option tally read back from the ledger.
type VoteCounts struct {
	A int
	B int
}

func (c VoteCounts) Total() int {
	return c.A + c.B
}

// VoteHistoryItem is one entry of a user's voting history, joined with
// the poll it belongs to.
type VoteHistoryItem struct {
	PollID   int64      `json:"id"`
	Question string     `json:"question"`
	Type     PollType   `json:"type"`
	Option   VoteOption `json:"option"`
	VotedAt  time.Time  `json:"createdAt"`
}
