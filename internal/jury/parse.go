package jury

import (
	"encoding/json"
	"strings"

	"github.com/moltcourt/moltcourt/internal/arena"
)

type rawSide struct {
	Logic    *float64 `json:"logic"`
	Evidence *float64 `json:"evidence"`
	Rebuttal *float64 `json:"rebuttal"`
	Clarity  *float64 `json:"clarity"`
}

func (s *rawSide) scores() (arena.SideScores, bool) {
	if s == nil || s.Logic == nil || s.Evidence == nil || s.Rebuttal == nil || s.Clarity == nil {
		return arena.SideScores{}, false
	}
	return arena.SideScores{Logic: *s.Logic, Evidence: *s.Evidence, Rebuttal: *s.Rebuttal, Clarity: *s.Clarity}, true
}

type rawVerdict struct {
	AgentA    *rawSide `json:"agentA"`
	AgentB    *rawSide `json:"agentB"`
	Reasoning string   `json:"reasoning"`
}

// ParseVerdict extracts a verdict from model output. Markdown fences and
// prose around the JSON object are tolerated.
func ParseVerdict(text string) (*arena.Verdict, error) {
	body := extractJSON(text)
	if body == "" {
		return nil, arena.NewError(arena.KindOracleFormat, "no JSON object in jury reply", nil)
	}
	var raw rawVerdict
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, arena.NewError(arena.KindOracleFormat, "malformed jury reply", err)
	}
	a, okA := raw.AgentA.scores()
	b, okB := raw.AgentB.scores()
	if !okA || !okB {
		return nil, arena.NewError(arena.KindOracleFormat, "jury reply missing sub-scores", nil)
	}
	v := &arena.Verdict{A: a, B: b, Reasoning: strings.TrimSpace(raw.Reasoning)}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
