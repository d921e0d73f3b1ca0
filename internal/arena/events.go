package arena

import (
	"context"
	"time"
)

// EventType names a committed arena state change.
type EventType string

const (
	EventFightCreated   EventType = "fight.created"
	EventFightAccepted  EventType = "fight.accepted"
	EventArgument       EventType = "argument.submitted"
	EventRoundJudged    EventType = "round.judged"
	EventJudgingFailed  EventType = "round.judging_failed"
	EventFightCompleted EventType = "fight.completed"
)

// Event is published after the state it describes has been committed.
type Event struct {
	Type     EventType `json:"type"`
	FightID  string    `json:"fight_id"`
	Round    int       `json:"round,omitempty"`
	AgentID  string    `json:"agent_id,omitempty"`
	ScoreA   *float64  `json:"score_a,omitempty"`
	ScoreB   *float64  `json:"score_b,omitempty"`
	WinnerID string    `json:"winner_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// EventSink receives arena events. Publish must not block on slow
// consumers; sink failures never affect arena state.
type EventSink interface {
	Publish(ctx context.Context, evt Event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}
