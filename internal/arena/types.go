package arena

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// FightStatus is the lifecycle state of a fight. PENDING is the open
// challenge state: no opponent is bound yet.
type FightStatus string

const (
	FightPending   FightStatus = "PENDING"
	FightActive    FightStatus = "ACTIVE"
	FightCompleted FightStatus = "COMPLETED"
)

// ParseFightStatus accepts any letter case.
func ParseFightStatus(s string) (FightStatus, bool) {
	switch FightStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case FightPending:
		return FightPending, true
	case FightActive:
		return FightActive, true
	case FightCompleted:
		return FightCompleted, true
	}
	return "", false
}

// Limits enforced at the arena boundary.
const (
	MinAgentNameLen = 2
	MaxAgentNameLen = 64
	MinTopicLen     = 10
	MaxTopicLen     = 500
	MinArgumentLen  = 50
	MaxArgumentLen  = 5000
	MinRounds       = 3
	MaxRounds       = 7
	DefaultRounds   = 5

	MaxSubScore = 10.0
)

// Agent is a registered debater. Record fields (wins, losses, reputation,
// streak) change only through settlement.
type Agent struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	APIKey           string    `json:"-"`
	Bio              string    `json:"bio,omitempty"`
	PreferredTopics  []string  `json:"preferred_topics,omitempty"`
	MoltbookUsername string    `json:"moltbook_username,omitempty"`
	Wins             int       `json:"wins"`
	Losses           int       `json:"losses"`
	Reputation       int       `json:"reputation"`
	CurrentStreak    int       `json:"current_streak"`
	CreatedAt        time.Time `json:"created_at"`
}

// Fight is a bounded multi-round debate. AgentA is always the challenger;
// AgentBID stays empty until the fight is accepted.
type Fight struct {
	ID           string      `json:"id"`
	AgentAID     string      `json:"agent_a_id"`
	AgentBID     string      `json:"agent_b_id,omitempty"`
	Topic        string      `json:"topic"`
	TotalRounds  int         `json:"total_rounds"`
	CurrentRound int         `json:"current_round"`
	Status       FightStatus `json:"status"`
	WinnerID     string      `json:"winner_id,omitempty"`
	Stakes       float64     `json:"stakes_usdc"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsParticipant reports whether agentID is one of the two sides.
func (f *Fight) IsParticipant(agentID string) bool {
	return agentID != "" && (agentID == f.AgentAID || agentID == f.AgentBID)
}

// SideScores are one side's four sub-scores for a round, each in [0, 10].
type SideScores struct {
	Logic    float64 `json:"logic"`
	Evidence float64 `json:"evidence"`
	Rebuttal float64 `json:"rebuttal"`
	Clarity  float64 `json:"clarity"`
}

// Total is the round aggregate for the side, in [0, 40].
func (s SideScores) Total() float64 {
	return s.Logic + s.Evidence + s.Rebuttal + s.Clarity
}

func (s SideScores) valid() bool {
	for _, v := range []float64{s.Logic, s.Evidence, s.Rebuttal, s.Clarity} {
		if math.IsNaN(v) || v < 0 || v > MaxSubScore {
			return false
		}
	}
	return true
}

// Round is one exchange within a fight. Scores are nil until judged; a
// judged round never changes again.
type Round struct {
	ID               string      `json:"id"`
	FightID          string      `json:"fight_id"`
	Number           int         `json:"round_number"`
	ScoreA           *float64    `json:"score_a"`
	ScoreB           *float64    `json:"score_b"`
	DetailA          *SideScores `json:"detail_a,omitempty"`
	DetailB          *SideScores `json:"detail_b,omitempty"`
	Reasoning        string      `json:"jury_reasoning,omitempty"`
	JudgingToken     string      `json:"-"`
	JudgingStartedAt *time.Time  `json:"-"`
	CompletedAt      *time.Time  `json:"completed_at"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Judged reports whether the round has recorded scores.
func (r *Round) Judged() bool { return r.CompletedAt != nil }

// Argument is one side's submission for one round.
type Argument struct {
	ID          string    `json:"id"`
	FightID     string    `json:"fight_id"`
	RoundID     string    `json:"round_id"`
	AgentID     string    `json:"agent_id"`
	RoundNumber int       `json:"round_number"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Verdict is the oracle's judgement of one round.
type Verdict struct {
	A         SideScores `json:"agentA"`
	B         SideScores `json:"agentB"`
	Reasoning string     `json:"reasoning"`
}

// Validate checks every sub-score is a number within [0, 10].
func (v *Verdict) Validate() error {
	if v == nil {
		return NewError(KindOracleFormat, "empty verdict", nil)
	}
	if !v.A.valid() || !v.B.valid() {
		return NewError(KindOracleFormat, "sub-score outside [0, 10]", nil)
	}
	return nil
}

// RecordDelta is an atomic adjustment of an agent's win/loss record.
type RecordDelta struct {
	Wins         int
	Losses       int
	Reputation   int
	ExtendStreak bool
}

// FightFilter selects fights for listing, newest first.
type FightFilter struct {
	Status FightStatus
	Limit  int
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
