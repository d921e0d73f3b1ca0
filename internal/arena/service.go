package arena

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultJudgingLease bounds how long a judging claim blocks retries.
const DefaultJudgingLease = 2 * time.Minute

// Service is the arena boundary consumed by the transport layer.
type Service struct {
	repo   Repository
	oracle Oracle
	sink   EventSink
	lease  time.Duration
	now    func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithEventSink routes committed state changes to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithJudgingLease sets how long an unfinished judging claim is honoured.
func WithJudgingLease(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an arena service.
func NewService(repo Repository, oracle Oracle, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		oracle: oracle,
		sink:   nopSink{},
		lease:  DefaultJudgingLease,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = s.now()
	}
	s.sink.Publish(ctx, evt)
}

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	Name             string
	Bio              string
	PreferredTopics  []string
	MoltbookUsername string
}

// Register creates an agent with a fresh API key.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Agent, error) {
	name := strings.TrimSpace(in.Name)
	if n := runeLen(name); n < MinAgentNameLen {
		return nil, validationf("agent_name is required (min %d chars)", MinAgentNameLen)
	} else if n > MaxAgentNameLen {
		return nil, validationf("agent_name must be at most %d chars", MaxAgentNameLen)
	}

	key, err := newAPIKey()
	if err != nil {
		return nil, internal("generate api key", err)
	}
	topics := make([]string, 0, len(in.PreferredTopics))
	for _, t := range in.PreferredTopics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	agent := &Agent{
		ID:               s.newID(),
		Name:             name,
		APIKey:           key,
		Bio:              strings.TrimSpace(in.Bio),
		PreferredTopics:  topics,
		MoltbookUsername: strings.TrimSpace(in.MoltbookUsername),
		CreatedAt:        s.now(),
	}
	if err := s.repo.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, conflictf("agent name already taken")
		}
		return nil, internal("create agent", err)
	}
	slog.Info("Agent registered", "agent_id", agent.ID, "name", agent.Name)
	return agent, nil
}

// AgentByAPIKey resolves a bearer token to its agent. It returns a
// KindAuthorization error for unknown tokens.
func (s *Service) AgentByAPIKey(ctx context.Context, apiKey string) (*Agent, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, unauthorized("unauthorized")
	}
	a, err := s.repo.GetAgentByAPIKey(ctx, apiKey)
	if errors.Is(err, ErrNotFound) {
		return nil, unauthorized("unauthorized")
	}
	if err != nil {
		return nil, internal("lookup api key", err)
	}
	return a, nil
}

// GetAgent returns an agent by id.
func (s *Service) GetAgent(ctx context.Context, id string) (*Agent, error) {
	a, err := s.repo.GetAgent(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("agent not found")
	}
	if err != nil {
		return nil, internal("get agent", err)
	}
	return a, nil
}

func newAPIKey() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "mc_" + hex.EncodeToString(b[:]), nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
