// Package jury implements the arena scoring oracle on top of an LLM provider.
package jury

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/provider"
)

// Options tunes a Client.
type Options struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxConcurrent int
}

// Client scores rounds by prompting an LLM provider.
type Client struct {
	llm  provider.LLMProvider
	name string
	opts Options
	sem  *Semaphore
}

var _ arena.Oracle = (*Client)(nil)

// New wraps llm as an arena oracle.
func New(llm provider.LLMProvider, opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	return &Client{
		llm:  llm,
		name: provider.Name(llm),
		opts: opts,
		sem:  NewSemaphore(opts.MaxConcurrent),
	}
}

// Model reports the model the client asks for.
func (c *Client) Model() string {
	if c.opts.Model != "" {
		return c.opts.Model
	}
	return c.llm.DefaultModel()
}

// Provider reports the canonical provider ID.
func (c *Client) Provider() string {
	return c.name
}

// InFlight reports oracle calls currently holding a slot and the slot
// count.
func (c *Client) InFlight() (held, size int) {
	return c.sem.Held(), c.sem.Size()
}

// Score implements arena.Oracle.
func (c *Client) Score(ctx context.Context, req *arena.ScoreRequest) (*arena.Verdict, error) {
	if err := c.sem.Acquire(ctx); err != nil {
		return nil, arena.NewError(arena.KindOracleUnavailable, "jury unavailable", err)
	}
	defer c.sem.Release()

	start := time.Now()
	resp, err := c.llm.Chat(ctx, &provider.ChatRequest{
		System:      SystemPrompt,
		Messages:    []provider.Message{{Role: "user", Content: BuildPrompt(req)}},
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		reason := "jury unavailable"
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
			reason = "jury rejected request"
		}
		return nil, arena.NewError(arena.KindOracleUnavailable, reason, err)
	}
	provider.RecordUsage(c.name, resp.Usage)

	v, err := ParseVerdict(resp.Content)
	if err != nil {
		slog.Warn("jury reply rejected", "fight_id", req.FightID, "round", req.RoundNumber, "error", err)
		return nil, err
	}
	slog.Debug("jury scored round",
		"fight_id", req.FightID,
		"round", req.RoundNumber,
		"score_a", v.A.Total(),
		"score_b", v.B.Total(),
		"tokens", resp.Usage.TotalTokens,
		"elapsed", time.Since(start))
	return v, nil
}
