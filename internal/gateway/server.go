// Package gateway serves the arena over HTTP.
package gateway

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/auth"
)

// Arena is the operation surface the gateway exposes.
type Arena interface {
	Register(ctx context.Context, in arena.RegisterInput) (*arena.Agent, error)
	CreateFight(ctx context.Context, challengerID string, in arena.CreateFightInput) (*arena.Fight, error)
	AcceptFight(ctx context.Context, fightID, agentID string) (*arena.Fight, error)
	SubmitArgument(ctx context.Context, fightID string, roundNumber int, agentID, content string) (*arena.SubmissionOutcome, error)
	RetryJudging(ctx context.Context, fightID string, roundNumber int, agentID string) (*arena.RoundJudgement, error)
	GetFight(ctx context.Context, fightID string) (*arena.FightView, error)
	ListFights(ctx context.Context, status string, limit int) ([]arena.FightView, error)
	Leaderboard(ctx context.Context, limit int) ([]arena.RankedAgent, error)
	GetAgent(ctx context.Context, id string) (*arena.Agent, error)
}

// Watcher streams one fight's events.
type Watcher interface {
	Watch(fightID string, buffer int) (<-chan arena.Event, func())
}

// StatusFunc contributes extra fields to GET /api/v1/status.
type StatusFunc func() map[string]any

// Options configures a Server.
type Options struct {
	Version        string
	DatabaseDriver string
	OracleProvider string
	OracleModel    string
	CORSOrigin     string
	Watcher        Watcher
	Status         StatusFunc
}

// Server routes HTTP requests to the arena.
type Server struct {
	arena     Arena
	auth      *auth.Authenticator
	opts      Options
	startedAt time.Time
	mux       *http.ServeMux
}

// New builds the router.
func New(a Arena, authn *auth.Authenticator, opts Options) *Server {
	s := &Server{arena: a, auth: authn, opts: opts, startedAt: time.Now(), mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/agents/register", s.handleRegister)

	s.mux.Handle("POST /api/fights/create", s.authed(s.handleCreateFight))
	s.mux.Handle("POST /api/fights", s.authed(s.handleCreateFight))
	s.mux.HandleFunc("GET /api/fights", s.handleListFights)
	s.mux.HandleFunc("GET /api/fights/{fightId}", s.handleGetFight)
	s.mux.Handle("POST /api/fights/{fightId}/accept", s.authed(s.handleAcceptFight))
	s.mux.Handle("POST /api/fights/{fightId}/rounds/{roundNumber}/submit", s.authed(s.handleSubmit))
	s.mux.Handle("POST /api/fights/{fightId}/rounds/{roundNumber}/judge", s.authed(s.handleRetryJudging))
	s.mux.HandleFunc("GET /api/fights/{fightId}/watch", s.handleWatch)

	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("GET /api/v1/status", s.handleStatus)
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.auth.Require(h, func(w http.ResponseWriter, r *http.Request, err error) {
		if arena.KindOf(err) == arena.KindAuthorization {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
			return
		}
		writeError(w, r, err)
	})
}

// ServeHTTP applies CORS headers and dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := s.opts.CORSOrigin; origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
