package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/moltcourt/moltcourt/internal/arena"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *memStore) Put(_ context.Context, key string, content []byte, contentType string) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[key] = content
	m.types[key] = contentType
	return nil
}

type staticFights map[string]*arena.FightView

func (s staticFights) GetFight(_ context.Context, id string) (*arena.FightView, error) {
	if v, ok := s[id]; ok {
		return v, nil
	}
	return nil, arena.NewError(arena.KindNotFound, "fight not found", nil)
}

func ptr(f float64) *float64 { return &f }

func completedFight() *arena.FightView {
	return &arena.FightView{
		Fight: arena.Fight{
			ID:          "f1",
			AgentAID:    "a",
			AgentBID:    "b",
			Topic:       "Static typing prevents more bugs than tests",
			TotalRounds: 3,
			Status:      arena.FightCompleted,
			WinnerID:    "a",
		},
		AgentA:     &arena.AgentSummary{ID: "a", Name: "alpha"},
		AgentB:     &arena.AgentSummary{ID: "b", Name: "beta"},
		WinnerName: "alpha",
		Rounds: []arena.RoundView{{
			Round: arena.Round{Number: 1, ScoreA: ptr(30), ScoreB: ptr(28.5), Reasoning: "Alpha cited data."},
			Arguments: []arena.Argument{
				{AgentID: "a", RoundNumber: 1, Content: "Alpha opening"},
				{AgentID: "b", RoundNumber: 1, Content: "Beta opening"},
			},
		}},
	}
}

func TestHandleArchivesCompletedFight(t *testing.T) {
	store := &memStore{}
	a := New(store, staticFights{"f1": completedFight()})

	if err := a.Handle(context.Background(), arena.Event{Type: arena.EventFightCompleted, FightID: "f1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	raw, ok := store.objects[TranscriptKey("f1", "json")]
	if !ok {
		t.Fatal("json transcript missing")
	}
	var decoded arena.FightView
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if decoded.WinnerName != "alpha" || len(decoded.Rounds) != 1 {
		t.Errorf("unexpected transcript %+v", decoded)
	}
	if store.types[TranscriptKey("f1", "json")] != "application/json" {
		t.Errorf("unexpected content type %q", store.types[TranscriptKey("f1", "json")])
	}

	md := string(store.objects[TranscriptKey("f1", "md")])
	for _, want := range []string{"# Static typing", "Winner: **alpha**", "### alpha\n\nAlpha opening", "### beta\n\nBeta opening", "alpha 30.0 · beta 28.5", "> Alpha cited data."} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	store := &memStore{}
	a := New(store, staticFights{})
	if err := a.Handle(context.Background(), arena.Event{Type: arena.EventRoundJudged, FightID: "f1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.objects) != 0 {
		t.Error("no objects expected")
	}
}

func TestArchiveRejectsUnfinishedFight(t *testing.T) {
	v := completedFight()
	v.Status = arena.FightActive
	a := New(&memStore{}, staticFights{"f1": v})
	if err := a.Archive(context.Background(), "f1"); err == nil {
		t.Fatal("expected error for active fight")
	}
}

func TestArchivePropagatesErrors(t *testing.T) {
	a := New(&memStore{}, staticFights{})
	if err := a.Archive(context.Background(), "missing"); arena.KindOf(err) != arena.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	boom := errors.New("bucket gone")
	a = New(&memStore{err: boom}, staticFights{"f1": completedFight()})
	if err := a.Archive(context.Background(), "f1"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestNewS3StoreValidates(t *testing.T) {
	cases := []S3Config{
		{AccessKey: "a", SecretKey: "s", Bucket: "b"},
		{Endpoint: "localhost:9000", Bucket: "b"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"},
	}
	for i, cfg := range cases {
		if _, err := NewS3Store(cfg); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if s.region != "us-east-1" {
		t.Errorf("expected default region, got %s", s.region)
	}
}
