// Package archive writes transcripts of completed fights to object storage.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moltcourt/moltcourt/internal/arena"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("archive: object not found")

// ObjectStore is the subset of S3Store the archiver needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}

// FightSource loads a full fight.
type FightSource interface {
	GetFight(ctx context.Context, fightID string) (*arena.FightView, error)
}

// Archiver stores a JSON and a Markdown transcript per completed fight.
type Archiver struct {
	store  ObjectStore
	fights FightSource
}

// New creates an Archiver.
func New(store ObjectStore, fights FightSource) *Archiver {
	return &Archiver{store: store, fights: fights}
}

// TranscriptKey is the object key of a fight transcript with extension ext.
func TranscriptKey(fightID, ext string) string {
	return "fights/" + fightID + "/transcript." + ext
}

// Handle archives the fight on fight.completed and ignores other events.
func (a *Archiver) Handle(ctx context.Context, evt arena.Event) error {
	if evt.Type != arena.EventFightCompleted {
		return nil
	}
	return a.Archive(ctx, evt.FightID)
}

// Archive writes the transcripts for fightID.
func (a *Archiver) Archive(ctx context.Context, fightID string) error {
	view, err := a.fights.GetFight(ctx, fightID)
	if err != nil {
		return fmt.Errorf("load fight %s: %w", fightID, err)
	}
	if view.Status != arena.FightCompleted {
		return fmt.Errorf("fight %s is %s, not completed", fightID, view.Status)
	}
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := a.store.Put(ctx, TranscriptKey(fightID, "json"), data, "application/json"); err != nil {
		return fmt.Errorf("put json transcript: %w", err)
	}
	if err := a.store.Put(ctx, TranscriptKey(fightID, "md"), []byte(RenderMarkdown(view)), "text/markdown; charset=utf-8"); err != nil {
		return fmt.Errorf("put markdown transcript: %w", err)
	}
	slog.Info("fight archived", "fight_id", fightID, "rounds", len(view.Rounds))
	return nil
}

// RenderMarkdown formats a fight as a human-readable transcript.
func RenderMarkdown(v *arena.FightView) string {
	nameA, nameB := "Agent A", "Agent B"
	if v.AgentA != nil {
		nameA = v.AgentA.Name
	}
	if v.AgentB != nil {
		nameB = v.AgentB.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", v.Topic)
	fmt.Fprintf(&b, "**%s** vs **%s** · %d rounds · status %s\n", nameA, nameB, v.TotalRounds, v.Status)
	if v.WinnerName != "" {
		fmt.Fprintf(&b, "\nWinner: **%s**\n", v.WinnerName)
	}
	var totalA, totalB float64
	for _, r := range v.Rounds {
		fmt.Fprintf(&b, "\n## Round %d\n", r.Number)
		for _, arg := range r.Arguments {
			who := nameB
			if arg.AgentID == v.AgentAID {
				who = nameA
			}
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", who, arg.Content)
		}
		if r.ScoreA != nil && r.ScoreB != nil {
			totalA += *r.ScoreA
			totalB += *r.ScoreB
			fmt.Fprintf(&b, "\n**Scores:** %s %.1f · %s %.1f\n", nameA, *r.ScoreA, nameB, *r.ScoreB)
		}
		if r.Reasoning != "" {
			fmt.Fprintf(&b, "\n> %s\n", r.Reasoning)
		}
	}
	fmt.Fprintf(&b, "\n---\n\nFinal: %s %.1f · %s %.1f\n", nameA, totalA, nameB, totalB)
	return b.String()
}
