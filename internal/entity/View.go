package entity

import "time"

type VoteTotals struct {
	A int `json:"a"`
	B int `json:"b"`
}

type VotePercents struct {
	A int `json:"a"`
	B int `json:"b"`
}

// PollView is the derived read model of a poll. It is never stored:
// every instance is computed from the vote ledger at read time.
// PercentA and PercentB are rounded independently, so they may sum to
// 99, 100 or 101.
type PollView struct {
	ID         int64        `json:"id"`
	Question   string       `json:"question"`
	Type       PollType     `json:"type"`
	OptionA    PollOption   `json:"optionA"`
	OptionB    PollOption   `json:"optionB"`
	Status     PollStatus   `json:"status"`
	EndsAt     *time.Time   `json:"endsAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	TotalVotes int          `json:"totalVotes"`
	Votes      VoteTotals   `json:"votes"`
	Percents   VotePercents `json:"percents"`
	UserVote   *VoteOption  `json:"userVote,omitempty"`
}

// SiteStats is the admin analytics snapshot.
type SiteStats struct {
	Users       int64 `json:"users"`
	Polls       int64 `json:"polls"`
	Votes       int64 `json:"votes"`
	ActivePolls int64 `json:"activePolls"`
}
