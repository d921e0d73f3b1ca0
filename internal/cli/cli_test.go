package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/config"
	"github.com/moltcourt/moltcourt/internal/store"
)

func runRootCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	fightsStatus, fightsLimit = "", arena.DefaultListLimit
	leaderboardLimit = arena.DefaultListLimit
	rejudgeAgent, configForce = "", false

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	rootCmd.SetArgs(nil)
	return strings.TrimSpace(buf.String()), err
}

// isolate points every config source at a scratch home.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("MOLTCOURT_HOME", tmp)
	t.Setenv("MOLTCOURT_CONFIG", "")
	t.Setenv("MOLTCOURT_ENV_FILE", "")
	t.Setenv("MOLTCOURT_LOG_LEVEL", "error")
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "DATABASE_URL", "MOLTCOURT_ORACLE_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	color.NoColor = true
	logOutput = io.Discard
	return tmp
}

func openTestStore(t *testing.T, home string) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{
		Driver: "sqlite",
		Path:   filepath.Join(home, config.ConfigDir, "moltcourt.db"),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func fixedVerdict(a, b float64) arena.OracleFunc {
	return func(context.Context, *arena.ScoreRequest) (*arena.Verdict, error) {
		return &arena.Verdict{
			A:         arena.SideScores{Logic: a, Evidence: a, Rebuttal: a, Clarity: a},
			B:         arena.SideScores{Logic: b, Evidence: b, Rebuttal: b, Clarity: b},
			Reasoning: "alpha was sharper",
		}, nil
	}
}

const testArgument = "This argument is deliberately long enough to clear the minimum length check."

// seedFight registers two agents and starts a named fight between them.
func seedFight(t *testing.T, svc *arena.Service) (*arena.Agent, *arena.Agent, *arena.Fight) {
	t.Helper()
	ctx := context.Background()
	a, err := svc.Register(ctx, arena.RegisterInput{Name: "alpha-bot"})
	if err != nil {
		t.Fatalf("register alpha: %v", err)
	}
	b, err := svc.Register(ctx, arena.RegisterInput{Name: "beta-bot"})
	if err != nil {
		t.Fatalf("register beta: %v", err)
	}
	f, err := svc.CreateFight(ctx, a.ID, arena.CreateFightInput{
		Topic:        "Tabs are better than spaces",
		Rounds:       3,
		OpponentName: "beta-bot",
	})
	if err != nil {
		t.Fatalf("create fight: %v", err)
	}
	return a, b, f
}

func TestVersionCommand(t *testing.T) {
	out, err := runRootCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "moltcourt v"+version {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestConfigInitWritesDefaults(t *testing.T) {
	tmp := isolate(t)

	out, err := runRootCommand(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	path := filepath.Join(tmp, config.ConfigDir, config.ConfigFile)
	if !strings.Contains(out, path) {
		t.Fatalf("expected path in output, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Oracle.Provider != "anthropic" {
		t.Fatalf("expected anthropic provider, got %q", cfg.Oracle.Provider)
	}

	if _, err := runRootCommand(t, "config", "init"); err == nil {
		t.Fatal("expected second init to refuse overwriting")
	}
	if _, err := runRootCommand(t, "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}

	out, err = runRootCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if out != path {
		t.Fatalf("expected %q, got %q", path, out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-secret-value")

	out, err := runRootCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "secret-value") {
		t.Fatalf("api key leaked: %s", out)
	}
	if !strings.Contains(out, `"apiKey": "sk-a****"`) {
		t.Fatalf("expected masked key, got %s", out)
	}
}

func TestEmptyArenaListings(t *testing.T) {
	isolate(t)

	out, err := runRootCommand(t, "fights")
	if err != nil {
		t.Fatalf("fights: %v", err)
	}
	if out != "No fights yet." {
		t.Fatalf("unexpected fights output %q", out)
	}

	out, err = runRootCommand(t, "leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if out != "No ranked agents yet." {
		t.Fatalf("unexpected leaderboard output %q", out)
	}
}

func TestFightsAndLeaderboardAfterCompletedFight(t *testing.T) {
	home := isolate(t)
	ctx := context.Background()

	st := openTestStore(t, home)
	svc := arena.NewService(st, fixedVerdict(8, 6))
	a, b, f := seedFight(t, svc)
	for round := 1; round <= 3; round++ {
		if _, err := svc.SubmitArgument(ctx, f.ID, round, a.ID, testArgument); err != nil {
			t.Fatalf("round %d alpha: %v", round, err)
		}
		if _, err := svc.SubmitArgument(ctx, f.ID, round, b.ID, testArgument); err != nil {
			t.Fatalf("round %d beta: %v", round, err)
		}
	}
	st.Close()

	out, err := runRootCommand(t, "fights", "--status", "completed")
	if err != nil {
		t.Fatalf("fights: %v", err)
	}
	for _, want := range []string{f.ID, "COMPLETED", "3/3", "alpha-bot vs beta-bot"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in fights output:\n%s", want, out)
		}
	}

	out, err = runRootCommand(t, "fights", "--status", "pending")
	if err != nil {
		t.Fatalf("fights pending: %v", err)
	}
	if out != "No fights yet." {
		t.Fatalf("expected no pending fights, got %q", out)
	}

	if _, err := runRootCommand(t, "fights", "--status", "bogus"); err == nil {
		t.Fatal("expected invalid status to fail")
	}

	out, err = runRootCommand(t, "fights", "show", f.ID)
	if err != nil {
		t.Fatalf("fights show: %v", err)
	}
	for _, want := range []string{"Round 3", "A=32.0", "B=24.0", "Totals:  A=96.0  B=72.0", "Winner:  alpha-bot", "jury: alpha was sharper"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in fight output:\n%s", want, out)
		}
	}

	out, err = runRootCommand(t, "leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "alpha-bot") || !strings.Contains(lines[1], "1-0") || !strings.Contains(lines[1], "100.0") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "beta-bot") || !strings.Contains(lines[2], "0-1") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
}

func TestFightsShowUnknownFight(t *testing.T) {
	isolate(t)
	_, err := runRootCommand(t, "fights", "show", "missing")
	if arena.KindOf(err) != arena.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejudgeScoresStuckRound(t *testing.T) {
	home := isolate(t)
	ctx := context.Background()

	st := openTestStore(t, home)
	svc := arena.NewService(st, arena.OracleFunc(func(context.Context, *arena.ScoreRequest) (*arena.Verdict, error) {
		return nil, arena.NewError(arena.KindOracleUnavailable, "jury unavailable", nil)
	}))
	a, b, f := seedFight(t, svc)
	if _, err := svc.SubmitArgument(ctx, f.ID, 1, a.ID, testArgument); err != nil {
		t.Fatalf("alpha: %v", err)
	}
	if _, err := svc.SubmitArgument(ctx, f.ID, 1, b.ID, testArgument); !arena.IsRetryable(err) {
		t.Fatalf("expected retryable judging failure, got %v", err)
	}
	st.Close()

	var calls int
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/messages" {
			http.NotFound(w, r)
			return
		}
		verdict := `{"agentA":{"logic":7,"evidence":7,"rebuttal":7,"clarity":7},` +
			`"agentB":{"logic":9,"evidence":9,"rebuttal":9,"clarity":9},"reasoning":"beta rebutted well"}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]string{{"type": "text", "text": verdict}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer llm.Close()
	t.Setenv("MOLTCOURT_ORACLE_PROVIDER", "anthropic")
	t.Setenv("MOLTCOURT_ORACLE_API_KEY", "test-key")
	t.Setenv("MOLTCOURT_ORACLE_API_BASE", llm.URL)

	if _, err := runRootCommand(t, "rejudge", f.ID, "1"); err == nil {
		t.Fatal("expected missing --agent to fail")
	}

	out, err := runRootCommand(t, "rejudge", f.ID, "1", "--agent", "beta-bot")
	if err != nil {
		t.Fatalf("rejudge: %v\n%s", err, out)
	}
	if calls != 1 {
		t.Fatalf("expected one jury call, got %d", calls)
	}
	for _, want := range []string{"Round 1 judged: A=28.0  B=36.0", "Jury: beta rebutted well", "Next round: 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	_, err = runRootCommand(t, "rejudge", f.ID, "1", "--agent", a.ID)
	if arena.KindOf(err) != arena.KindConflict {
		t.Fatalf("expected conflict on judged round, got %v", err)
	}
}

func TestRejudgeUnknownAgent(t *testing.T) {
	isolate(t)
	t.Setenv("MOLTCOURT_ORACLE_API_KEY", "test-key")
	_, err := runRootCommand(t, "rejudge", "some-fight", "1", "--agent", "ghost")
	if err == nil || !strings.Contains(err.Error(), `agent "ghost" not found`) {
		t.Fatalf("expected unknown agent error, got %v", err)
	}
}

func TestStatusFailsWithoutJuryKey(t *testing.T) {
	isolate(t)

	out, err := runRootCommand(t, "status")
	if err == nil {
		t.Fatal("expected status to fail without an api key")
	}
	for _, want := range []string{"[WARN] config_file:", "[PASS] database: sqlite", "[FAIL] jury:", "[PASS] kafka: disabled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in status output:\n%s", want, out)
		}
	}
}

func TestStatusPassesWithJuryKey(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MOLTCOURT_ORACLE_PROVIDER", "openai")
	t.Setenv("MOLTCOURT_ORACLE_MODEL", "gpt-4.1-mini")

	out, err := runRootCommand(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[PASS] jury: openai (gpt-4.1-mini)") {
		t.Fatalf("unexpected status output:\n%s", out)
	}
}

func TestStatusFlagsMisconfiguredSink(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("MOLTCOURT_NOTIFY_SLACK_ENABLED", "true")

	out, err := runRootCommand(t, "status")
	if err == nil {
		t.Fatal("expected failure for slack without a webhook")
	}
	if !strings.Contains(out, "[FAIL] slack: no webhook URL configured") {
		t.Fatalf("unexpected status output:\n%s", out)
	}
}
