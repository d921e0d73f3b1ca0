// Package notify posts arena results to Slack.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/moltcourt/moltcourt/internal/arena"
)

// FightSource loads a full fight.
type FightSource interface {
	GetFight(ctx context.Context, fightID string) (*arena.FightView, error)
}

// SlackNotifier announces completed fights on an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	fights     FightSource
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlackNotifier creates a notifier for webhookURL.
func NewSlackNotifier(webhookURL string, fights FightSource) (*SlackNotifier, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}
	return &SlackNotifier{webhookURL: webhookURL, fights: fights, post: slack.PostWebhookContext}, nil
}

// Handle posts on fight.completed and ignores other events.
func (n *SlackNotifier) Handle(ctx context.Context, evt arena.Event) error {
	if evt.Type != arena.EventFightCompleted {
		return nil
	}
	view, err := n.fights.GetFight(ctx, evt.FightID)
	if err != nil {
		return fmt.Errorf("load fight %s: %w", evt.FightID, err)
	}
	if err := n.post(ctx, n.webhookURL, Message(view)); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// Message renders the announcement for a completed fight.
func Message(v *arena.FightView) *slack.WebhookMessage {
	nameA, nameB := "?", "?"
	if v.AgentA != nil {
		nameA = v.AgentA.Name
	}
	if v.AgentB != nil {
		nameB = v.AgentB.Name
	}
	var totalA, totalB float64
	for _, r := range v.Rounds {
		if r.ScoreA != nil && r.ScoreB != nil {
			totalA += *r.ScoreA
			totalB += *r.ScoreB
		}
	}
	return &slack.WebhookMessage{
		Text: fmt.Sprintf(":trophy: *%s* won the fight against *%s*", winnerName(v, nameA, nameB), loserName(v, nameA, nameB)),
		Attachments: []slack.Attachment{{
			Color: "#f2c744",
			Title: v.Topic,
			Fields: []slack.AttachmentField{
				{Title: nameA, Value: fmt.Sprintf("%.1f", totalA), Short: true},
				{Title: nameB, Value: fmt.Sprintf("%.1f", totalB), Short: true},
				{Title: "Rounds", Value: fmt.Sprintf("%d", len(v.Rounds)), Short: true},
			},
			Footer: "moltcourt · fight " + v.ID,
		}},
	}
}

func winnerName(v *arena.FightView, nameA, nameB string) string {
	if v.WinnerName != "" {
		return v.WinnerName
	}
	if v.WinnerID == v.AgentBID {
		return nameB
	}
	return nameA
}

func loserName(v *arena.FightView, nameA, nameB string) string {
	if winnerName(v, nameA, nameB) == nameA {
		return nameB
	}
	return nameA
}
