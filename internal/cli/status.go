package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moltcourt/moltcourt/internal/config"
	"github.com/moltcourt/moltcourt/internal/events"
	"github.com/moltcourt/moltcourt/internal/provider"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check configuration, database and jury setup",
	RunE:  runStatus,
}

type check struct {
	name string
	ok   bool
	warn bool
	msg  string
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	printHeader(out, "Status")

	var checks []check
	cfgPath, _ := config.ConfigPath()
	if _, err := os.Stat(cfgPath); err != nil {
		checks = append(checks, check{name: "config_file", warn: true, msg: "not found, using defaults and environment: " + cfgPath})
	} else {
		checks = append(checks, check{name: "config_file", ok: true, msg: cfgPath})
	}

	cfg, err := loadConfig()
	if err != nil {
		checks = append(checks, check{name: "config_load", msg: err.Error()})
		return reportChecks(cmd, checks)
	}
	checks = append(checks, check{name: "config_load", ok: true, msg: "ok"})

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		checks = append(checks, check{name: "database", msg: err.Error()})
	} else {
		if err := st.DB().PingContext(cmd.Context()); err != nil {
			checks = append(checks, check{name: "database", msg: err.Error()})
		} else {
			checks = append(checks, check{name: "database", ok: true, msg: string(st.Dialect())})
		}
		st.Close()
	}

	if llm, err := provider.Resolve(cmd.Context(), cfg.Oracle); err != nil {
		checks = append(checks, check{name: "jury", msg: err.Error()})
	} else {
		checks = append(checks, check{name: "jury", ok: true, msg: fmt.Sprintf("%s (%s)", provider.Name(llm), llm.DefaultModel())})
	}

	kafkaCheck := sinkCheck("kafka", cfg.Events.Kafka.Enabled, len(cfg.Events.Kafka.Brokers) > 0, "no brokers configured")
	if cfg.Events.Kafka.Enabled && kafkaCheck.ok {
		kafkaCheck = probeKafka(cmd.Context(), cfg.Events.Kafka)
	}
	checks = append(checks,
		kafkaCheck,
		sinkCheck("archive", cfg.Archive.Enabled, cfg.Archive.Endpoint != "", "no endpoint configured"),
		sinkCheck("slack", cfg.Notify.Slack.Enabled, cfg.Notify.Slack.WebhookURL != "", "no webhook URL configured"),
	)
	fmt.Fprintf(out, "Gateway: http://%s\n\n", cfg.Gateway.Addr())
	return reportChecks(cmd, checks)
}

func probeKafka(ctx context.Context, k config.KafkaConfig) check {
	res, err := events.Probe(ctx, k.Brokers, k.Topic, 5*time.Second)
	if err != nil {
		return check{name: "kafka", msg: err.Error()}
	}
	if res.Partitions == 0 {
		return check{name: "kafka", warn: true, msg: fmt.Sprintf("%s reachable, topic %s not created yet", res.Broker, k.Topic)}
	}
	return check{name: "kafka", ok: true, msg: fmt.Sprintf("%s reachable, %s has %d partition(s)", res.Broker, k.Topic, res.Partitions)}
}

func sinkCheck(name string, enabled, configured bool, missing string) check {
	switch {
	case !enabled:
		return check{name: name, ok: true, msg: "disabled"}
	case !configured:
		return check{name: name, msg: missing}
	default:
		return check{name: name, ok: true, msg: "enabled"}
	}
}

func reportChecks(cmd *cobra.Command, checks []check) error {
	failures := 0
	for _, c := range checks {
		symbol := color.GreenString("PASS")
		switch {
		case c.warn:
			symbol = color.YellowString("WARN")
		case !c.ok:
			symbol = color.RedString("FAIL")
			failures++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", symbol, c.name, c.msg)
	}
	if failures > 0 {
		return fmt.Errorf("status found %d failing check(s)", failures)
	}
	return nil
}
