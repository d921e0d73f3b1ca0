package jury

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/provider"
)

type fakeLLM struct {
	mu    sync.Mutex
	reqs  []*provider.ChatRequest
	reply string
	err   error
	block chan struct{}
	live  atomic.Int32
	peak  atomic.Int32
}

func (f *fakeLLM) DefaultModel() string { return "fake-model" }

func (f *fakeLLM) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	n := f.live.Add(1)
	defer f.live.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &provider.ChatResponse{Content: f.reply, Usage: provider.Usage{TotalTokens: 42}}, nil
}

const goodReply = `{"agentA":{"logic":7.5,"evidence":6,"rebuttal":5,"clarity":8},"agentB":{"logic":6,"evidence":7,"rebuttal":5,"clarity":7.5},"reasoning":" A was sharper. "}`

func sampleRequest() *arena.ScoreRequest {
	return &arena.ScoreRequest{
		FightID:     "f1",
		Topic:       "Tabs are better than spaces",
		RoundNumber: 2,
		AgentAName:  "alpha",
		AgentBName:  "beta",
		Prior: []arena.PriorRound{{
			Number:    1,
			ScoreA:    26.5,
			ScoreB:    25,
			ArgumentA: strings.Repeat("a", 250),
			ArgumentB: "short b",
		}},
		ArgumentA: "argument from alpha",
		ArgumentB: "argument from beta",
	}
}

func TestScoreParsesVerdict(t *testing.T) {
	llm := &fakeLLM{reply: goodReply}
	c := New(llm, Options{MaxConcurrent: 2, Temperature: 0.1})

	v, err := c.Score(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.A.Total() != 26.5 || v.B.Total() != 25.5 {
		t.Errorf("unexpected totals %.1f/%.1f", v.A.Total(), v.B.Total())
	}
	if v.Reasoning != "A was sharper." {
		t.Errorf("unexpected reasoning %q", v.Reasoning)
	}

	req := llm.reqs[0]
	if req.System != SystemPrompt || !req.JSON || req.MaxTokens != 1000 || req.Temperature != 0.1 {
		t.Errorf("unexpected chat request %+v", req)
	}
	if c.Model() != "fake-model" {
		t.Errorf("expected provider default model, got %s", c.Model())
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(sampleRequest())
	want := "TOPIC: Tabs are better than spaces\n\n" +
		"PREVIOUS:\nRound 1: A=26.5, B=25.0\nA: " + strings.Repeat("a", 200) + "...\nB: short b...\n\n" +
		"ROUND 2:\n\nAgent A (alpha):\nargument from alpha\n\nAgent B (beta):\nargument from beta\n\nScore both."
	if got != want {
		t.Errorf("prompt mismatch:\n got: %q\nwant: %q", got, want)
	}

	first := sampleRequest()
	first.Prior = nil
	if strings.Contains(BuildPrompt(first), "PREVIOUS") {
		t.Error("first round prompt should have no PREVIOUS section")
	}
}

func TestExcerptCountsRunes(t *testing.T) {
	s := strings.Repeat("é", 250)
	if got := []rune(excerpt(s)); len(got) != 200 {
		t.Errorf("expected 200 runes, got %d", len(got))
	}
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"plain", goodReply, true},
		{"fenced", "```json\n" + goodReply + "\n```", true},
		{"prose", "Here is my verdict: " + goodReply + " Thanks.", true},
		{"missing sub-score", `{"agentA":{"logic":1,"evidence":1,"rebuttal":1},"agentB":{"logic":1,"evidence":1,"rebuttal":1,"clarity":1}}`, false},
		{"missing side", `{"agentA":{"logic":1,"evidence":1,"rebuttal":1,"clarity":1}}`, false},
		{"string score", `{"agentA":{"logic":"high","evidence":1,"rebuttal":1,"clarity":1},"agentB":{"logic":1,"evidence":1,"rebuttal":1,"clarity":1}}`, false},
		{"out of range", `{"agentA":{"logic":11,"evidence":1,"rebuttal":1,"clarity":1},"agentB":{"logic":1,"evidence":1,"rebuttal":1,"clarity":1}}`, false},
		{"negative", `{"agentA":{"logic":-1,"evidence":1,"rebuttal":1,"clarity":1},"agentB":{"logic":1,"evidence":1,"rebuttal":1,"clarity":1}}`, false},
		{"no json", "I cannot judge this.", false},
		{"truncated", `{"agentA":{"logic":1,`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseVerdict(tc.input)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v.A.Logic != 7.5 {
					t.Errorf("unexpected logic %v", v.A.Logic)
				}
				return
			}
			if arena.KindOf(err) != arena.KindOracleFormat {
				t.Fatalf("expected format error, got %v", err)
			}
			if !arena.IsRetryable(err) {
				t.Error("format errors should be retryable")
			}
		})
	}
}

func TestScoreProviderFailureIsUnavailable(t *testing.T) {
	c := New(&fakeLLM{err: errors.New("connection refused")}, Options{})
	_, err := c.Score(context.Background(), sampleRequest())
	if arena.KindOf(err) != arena.KindOracleUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if arena.ReasonOf(err) != "jury unavailable" {
		t.Errorf("unexpected reason %q", arena.ReasonOf(err))
	}

	c = New(&fakeLLM{err: &provider.APIError{Provider: "anthropic", StatusCode: 401}}, Options{})
	_, err = c.Score(context.Background(), sampleRequest())
	if arena.KindOf(err) != arena.KindOracleUnavailable || arena.ReasonOf(err) != "jury rejected request" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestScoreBoundsConcurrency(t *testing.T) {
	llm := &fakeLLM{reply: goodReply, block: make(chan struct{})}
	c := New(llm, Options{MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Score(context.Background(), sampleRequest()); err != nil {
				t.Errorf("Score: %v", err)
			}
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for llm.live.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if held, size := c.InFlight(); held != 2 || size != 2 {
		t.Errorf("expected 2/2 slots in flight, got %d/%d", held, size)
	}
	close(llm.block)
	wg.Wait()

	if p := llm.peak.Load(); p > 2 {
		t.Errorf("expected at most 2 concurrent calls, saw %d", p)
	}
}

func TestScoreHonoursContextWhileQueued(t *testing.T) {
	llm := &fakeLLM{reply: goodReply, block: make(chan struct{})}
	c := New(llm, Options{MaxConcurrent: 1})
	go c.Score(context.Background(), sampleRequest())
	for llm.live.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Score(ctx, sampleRequest())
	if arena.KindOf(err) != arena.KindOracleUnavailable {
		t.Fatalf("expected unavailable while queued, got %v", err)
	}
	close(llm.block)
}

func TestSemaphore(t *testing.T) {
	s := NewSemaphore(0)
	if s.Size() != 1 {
		t.Fatalf("expected size floor of 1, got %d", s.Size())
	}
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s.Held() != 1 {
		t.Errorf("expected 1 held, got %d", s.Held())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while full, got %v", err)
	}
	s.Release()
	if s.Held() != 0 {
		t.Errorf("expected 0 held after release, got %d", s.Held())
	}
}
