// Package assistant answers recycling questions with canned advice.
package assistant

import (
	"strings"
	"time"
)

const fallback = "I'm here to help with recycling questions! Ask me about specific materials."

// topics are matched in order; the first keyword found in the message wins.
var topics = []struct {
	keyword string
	answer  string
}{
	{"plastic", "Plastic items should be cleaned before recycling. Check the recycling number on the bottom!"},
	{"glass", "Glass is 100% recyclable! Make sure to rinse it clean first."},
	{"paper", "Paper products are great for recycling, but make sure they're dry and clean."},
	{"batteries", "Batteries need special handling! Take them to designated collection points."},
	{"electronics", "E-waste should go to certified recycling centers, not regular bins."},
}

type Reply struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Assistant struct {
	now func() time.Time
}

func New(now func() time.Time) *Assistant {
	if now == nil {
		now = time.Now
	}
	return &Assistant{now: now}
}

func (a *Assistant) Answer(message string) Reply {
	lower := strings.ToLower(message)

	answer := fallback
	for _, t := range topics {
		if strings.Contains(lower, t.keyword) {
			answer = t.answer
			break
		}
	}

	return Reply{Message: answer, Timestamp: a.now().UTC()}
}
