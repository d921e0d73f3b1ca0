package cli

import (
	"testing"

	"github.com/moltcourt/moltcourt/internal/auth"
	"github.com/moltcourt/moltcourt/internal/bus"
	"github.com/moltcourt/moltcourt/internal/jury"
	"github.com/moltcourt/moltcourt/internal/provider"
)

func TestRuntimeStatusReportsJurySlots(t *testing.T) {
	authn, err := auth.New(nil, 8)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	judge := jury.New(provider.NewOpenAIProvider("k", "http://127.0.0.1:1", "m"), jury.Options{MaxConcurrent: 3})

	got := runtimeStatus(bus.New(4), authn, judge)()
	want := map[string]any{
		"events_pending": 0,
		"events_dropped": int64(0),
		"watchers":       0,
		"auth_cache":     0,
		"jury_in_flight": 0,
		"jury_slots":     3,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v (%T), want %v (%T)", k, got[k], got[k], v, v)
		}
	}
}
