package models

import (
	"slices"
	"time"
)

type ChallengeStatus string

const (
	ChallengePending ChallengeStatus = "pending"
	ChallengeActive  ChallengeStatus = "active"
	ChallengeEnded   ChallengeStatus = "ended"
)

type Challenge struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TargetCount  int       `json:"target_count"`
	RewardPoints int64     `json:"reward_points"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Participants []string  `json:"participants"`
}

// Status derives the lifecycle state at now. Both window ends are inclusive.
func (c *Challenge) Status(now time.Time) ChallengeStatus {
	switch {
	case now.Before(c.StartDate):
		return ChallengePending
	case now.After(c.EndDate):
		return ChallengeEnded
	default:
		return ChallengeActive
	}
}

func (c *Challenge) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// AchievementID is the achievement granted for completing the challenge.
func (c *Challenge) AchievementID() string {
	return "challenge:" + c.ID
}
