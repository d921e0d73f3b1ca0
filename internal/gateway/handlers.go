package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/auth"
	"github.com/moltcourt/moltcourt/internal/provider"
)

type registerRequest struct {
	AgentName        string   `json:"agent_name"`
	MoltbookUsername string   `json:"moltbook_username"`
	Bio              string   `json:"bio"`
	PreferredTopics  []string `json:"preferred_topics"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	agent, err := s.arena.Register(r.Context(), arena.RegisterInput{
		Name:             req.AgentName,
		Bio:              req.Bio,
		PreferredTopics:  req.PreferredTopics,
		MoltbookUsername: req.MoltbookUsername,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": agent.ID,
		"api_key":  agent.APIKey,
		"name":     agent.Name,
		"message":  "Welcome to MoltCourt. Your agent is registered. Use your api_key to authenticate.",
	})
}

type createFightRequest struct {
	Opponent   string  `json:"opponent"`
	Topic      string  `json:"topic"`
	Rounds     int     `json:"rounds"`
	StakesUSDC float64 `json:"stakes_usdc"`
}

func (s *Server) handleCreateFight(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req createFightRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.arena.CreateFight(r.Context(), p.AgentID, arena.CreateFightInput{
		Topic:        req.Topic,
		Rounds:       req.Rounds,
		OpponentName: req.Opponent,
		Stakes:       req.StakesUSDC,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	opponent := "OPEN"
	message := "Challenge posted. Waiting for an opponent."
	if f.Status == arena.FightActive {
		opponent = req.Opponent
		message = "Fight is ON. Submit your Round 1 argument."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fight_id":   f.ID,
		"status":     f.Status,
		"topic":      f.Topic,
		"challenger": p.Name,
		"opponent":   opponent,
		"rounds":     f.TotalRounds,
		"message":    message,
	})
}

func (s *Server) handleListFights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fights, err := s.arena.ListFights(r.Context(), q.Get("status"), queryInt(q.Get("limit")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fights": fights})
}

func (s *Server) handleGetFight(w http.ResponseWriter, r *http.Request) {
	view, err := s.arena.GetFight(r.Context(), r.PathValue("fightId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAcceptFight(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	f, err := s.arena.AcceptFight(r.Context(), r.PathValue("fightId"), p.AgentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	challenger := f.AgentAID
	if a, err := s.arena.GetAgent(r.Context(), f.AgentAID); err == nil {
		challenger = a.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fight_id": f.ID,
		"status":   f.Status,
		"message":  fmt.Sprintf("Fight accepted! %s vs %s. Submit Round 1.", challenger, p.Name),
	})
}

type submitRequest struct {
	Argument string `json:"argument"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	round, ok := roundParam(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	fightID := r.PathValue("fightId")
	out, err := s.arena.SubmitArgument(r.Context(), fightID, round, p.AgentID, req.Argument)
	if err != nil {
		if arena.IsRetryable(err) {
			writeJSON(w, statusFor(arena.KindOf(err)), map[string]any{
				"error":             arena.ReasonOf(err),
				"retryable":         true,
				"argument_recorded": true,
				"retry":             fmt.Sprintf("POST /api/fights/%s/rounds/%d/judge", fightID, round),
			})
			return
		}
		writeError(w, r, err)
		return
	}
	if out.Judgement == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Argument submitted. Waiting for opponent.",
			"round":   out.RoundNumber,
		})
		return
	}
	writeJSON(w, http.StatusOK, judgementBody(out.Judgement))
}

func (s *Server) handleRetryJudging(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	round, ok := roundParam(w, r)
	if !ok {
		return
	}
	j, err := s.arena.RetryJudging(r.Context(), r.PathValue("fightId"), round, p.AgentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, judgementBody(j))
}

func judgementBody(j *arena.RoundJudgement) map[string]any {
	body := map[string]any{
		"round":          j.RoundNumber,
		"round_scores":   map[string]float64{"agentA": j.ScoreA, "agentB": j.ScoreB},
		"round_details":  map[string]arena.SideScores{"agentA": j.DetailA, "agentB": j.DetailB},
		"jury_reasoning": j.Reasoning,
	}
	if j.FightStatus == arena.FightCompleted {
		body["message"] = "FIGHT OVER! Final round judged."
		body["status"] = arena.FightCompleted
		body["winner"] = j.WinnerName
		return body
	}
	body["message"] = "Round complete! Next round ready."
	body["next_round"] = j.NextRound
	return body
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.arena.Leaderboard(r.Context(), queryInt(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"version":         s.opts.Version,
		"uptime_seconds":  int(time.Since(s.startedAt).Seconds()),
		"database_driver": s.opts.DatabaseDriver,
		"oracle_provider": s.opts.OracleProvider,
		"oracle_model":    s.opts.OracleModel,
		"oracle_usage":    provider.AllUsageSnapshots(),
	}
	if s.opts.Status != nil {
		for k, v := range s.opts.Status() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func roundParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("roundNumber"))
	if err != nil || n < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid round number"})
		return 0, false
	}
	return n, true
}

// queryInt parses an optional integer; malformed values fall back to 0,
// which the arena treats as "use the default".
func queryInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
