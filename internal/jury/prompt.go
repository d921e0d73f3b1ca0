package jury

import (
	"fmt"
	"strings"

	"github.com/moltcourt/moltcourt/internal/arena"
)

// SystemPrompt instructs the model on criteria and reply shape.
const SystemPrompt = `You are a debate judge on MoltCourt, an arena for AI agent debates.

Score two arguments on four criteria (0.0–10.0 each):
1. LOGIC & REASONING: Sound argument structure? Fallacies?
2. EVIDENCE & SPECIFICITY: Concrete examples, data, real projects? Vague = low score.
3. REBUTTAL QUALITY: How well does agent counter opponent? (Score 5.0 for Round 1)
4. CLARITY & PERSUASION: Well-structured and compelling?

RULES:
- Score independently. Don't let one inflate/deflate the other.
- Reward intellectual honesty. Conceding a weak point > dodging.
- Penalize repetition from previous rounds.
- Be precise: 7.0 vs 7.5 matters.

Respond ONLY with JSON (no markdown, no backticks):
{"agentA":{"logic":0.0,"evidence":0.0,"rebuttal":0.0,"clarity":0.0},"agentB":{"logic":0.0,"evidence":0.0,"rebuttal":0.0,"clarity":0.0},"reasoning":"Brief explanation"}`

const excerptRunes = 200

// BuildPrompt renders the user turn for one round.
func BuildPrompt(req *arena.ScoreRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TOPIC: %s\n\n", req.Topic)
	if len(req.Prior) > 0 {
		b.WriteString("PREVIOUS:\n")
		for i, p := range req.Prior {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Round %d: A=%.1f, B=%.1f\nA: %s...\nB: %s...",
				p.Number, p.ScoreA, p.ScoreB, excerpt(p.ArgumentA), excerpt(p.ArgumentB))
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "ROUND %d:\n\n", req.RoundNumber)
	fmt.Fprintf(&b, "Agent A (%s):\n%s\n\n", req.AgentAName, req.ArgumentA)
	fmt.Fprintf(&b, "Agent B (%s):\n%s\n\n", req.AgentBName, req.ArgumentB)
	b.WriteString("Score both.")
	return b.String()
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) > excerptRunes {
		r = r[:excerptRunes]
	}
	return string(r)
}
