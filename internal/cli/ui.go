package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/moltcourt/moltcourt/internal/arena"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(logo))
	if title != "" {
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, "─────────────────────")
	}
}

func statusColor(s arena.FightStatus) string {
	switch s {
	case arena.FightPending:
		return color.YellowString(string(s))
	case arena.FightActive:
		return color.GreenString(string(s))
	default:
		return color.HiBlackString(string(s))
	}
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func agentName(a *arena.AgentSummary) string {
	if a == nil {
		return "OPEN"
	}
	return a.Name
}
