package arena

import (
	"context"
	"time"
)

// Store is the persistence contract the arena consumes. Methods that
// return a bool are compare-and-set operations: false means the guarded
// precondition no longer held and nothing was written.
//
// Lookups return ErrNotFound when the row is absent; inserts that violate
// a uniqueness constraint return ErrDuplicate.
type Store interface {
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	GetAgentByName(ctx context.Context, name string) (*Agent, error)
	GetAgentByAPIKey(ctx context.Context, apiKey string) (*Agent, error)
	AdjustAgentRecord(ctx context.Context, agentID string, d RecordDelta) error
	ListRankedAgents(ctx context.Context, limit int) ([]Agent, error)

	CreateFight(ctx context.Context, f *Fight) error
	GetFight(ctx context.Context, id string) (*Fight, error)
	// LockFight reads the fight and holds it against concurrent writers
	// until the surrounding transaction ends.
	LockFight(ctx context.Context, id string) (*Fight, error)
	ListFights(ctx context.Context, filter FightFilter) ([]Fight, error)
	ActivateFight(ctx context.Context, fightID, opponentID string, at time.Time) (bool, error)
	AdvanceRound(ctx context.Context, fightID string, from int, at time.Time) (bool, error)
	CompleteFight(ctx context.Context, fightID, winnerID string, at time.Time) (bool, error)

	// EnsureRound inserts the round row if it is absent and returns the
	// stored row either way.
	EnsureRound(ctx context.Context, r *Round) (*Round, error)
	GetRound(ctx context.Context, fightID string, number int) (*Round, error)
	ListRounds(ctx context.Context, fightID string) ([]Round, error)
	// ClaimRound marks an unjudged round as being judged under token. A
	// claim older than staleBefore may be taken over.
	ClaimRound(ctx context.Context, roundID, token string, at, staleBefore time.Time) (bool, error)
	ReleaseRound(ctx context.Context, roundID, token string) error
	// ScoreRound records the verdict once, only for the current claim holder.
	ScoreRound(ctx context.Context, roundID, token string, v *Verdict, at time.Time) (bool, error)

	InsertArgument(ctx context.Context, a *Argument) error
	// ListArguments returns the fight's arguments for one round, or for
	// every round when round is 0, oldest first.
	ListArguments(ctx context.Context, fightID string, round int) ([]Argument, error)
}

// Repository is a Store that can run a unit of work atomically.
type Repository interface {
	Store
	InTx(ctx context.Context, fn func(tx Store) error) error
}
