// Package auth resolves bearer tokens to arena agents.
package auth

import (
	"context"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/moltcourt/moltcourt/internal/arena"
)

// Lookup resolves an API key to its agent.
type Lookup interface {
	AgentByAPIKey(ctx context.Context, apiKey string) (*arena.Agent, error)
}

// Principal is the authenticated caller.
type Principal struct {
	AgentID string
	Name    string
}

// Authenticator maps bearer tokens to principals. API keys never change
// once issued, so successful lookups are cached; misses are not.
type Authenticator struct {
	lookup Lookup
	cache  *lru.Cache[string, Principal]
}

// New creates an Authenticator with an LRU of cacheSize entries.
func New(lookup Lookup, cacheSize int) (*Authenticator, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, Principal](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Authenticator{lookup: lookup, cache: cache}, nil
}

// Authenticate resolves token. Unknown or empty tokens yield an
// authorization error.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, arena.NewError(arena.KindAuthorization, "missing bearer token", nil)
	}
	if p, ok := a.cache.Get(token); ok {
		return p, nil
	}
	agent, err := a.lookup.AgentByAPIKey(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	p := Principal{AgentID: agent.ID, Name: agent.Name}
	a.cache.Add(token, p)
	return p, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

type ctxKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Require wraps next so that it only runs for authenticated requests.
// Failures are handed to onError.
func (a *Authenticator) Require(next http.Handler, onError func(http.ResponseWriter, *http.Request, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Len reports the number of cached tokens.
func (a *Authenticator) Len() int {
	return a.cache.Len()
}
