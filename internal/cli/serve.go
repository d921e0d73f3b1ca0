package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moltcourt/moltcourt/internal/archive"
	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/auth"
	"github.com/moltcourt/moltcourt/internal/bus"
	"github.com/moltcourt/moltcourt/internal/config"
	"github.com/moltcourt/moltcourt/internal/events"
	"github.com/moltcourt/moltcourt/internal/gateway"
	"github.com/moltcourt/moltcourt/internal/jury"
	"github.com/moltcourt/moltcourt/internal/notify"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the arena HTTP gateway",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides gateway.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides gateway.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Gateway.Host = serveHost
	}
	if servePort > 0 {
		cfg.Gateway.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	judge, err := newJury(ctx, cfg)
	if err != nil {
		return fmt.Errorf("jury: %w", err)
	}

	eb := bus.New(0)
	svc := arena.NewService(st, judge,
		arena.WithEventSink(eb),
		arena.WithJudgingLease(cfg.Oracle.JudgingLease),
	)
	closeSinks, err := attachSinks(cfg, eb, svc)
	if err != nil {
		return err
	}
	defer closeSinks()

	// The bus outlives the gateway so events from draining requests still
	// reach the sinks.
	defer startBus(eb)()

	authn, err := auth.New(svc, cfg.Auth.CacheSize)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	srv := gateway.New(svc, authn, gateway.Options{
		Version:        version,
		DatabaseDriver: string(st.Dialect()),
		OracleProvider: judge.Provider(),
		OracleModel:    judge.Model(),
		CORSOrigin:     cfg.Gateway.CORSOrigin,
		Watcher:        eb,
		Status:         runtimeStatus(eb, authn, judge),
	})

	out := cmd.OutOrStdout()
	printHeader(out, "Arena")
	fmt.Fprintf(out, "Listening:  http://%s\n", cfg.Gateway.Addr())
	fmt.Fprintf(out, "Database:   %s\n", st.Dialect())
	fmt.Fprintf(out, "Jury:       %s (%s)\n", judge.Provider(), judge.Model())

	return srv.ListenAndServe(ctx, cfg.Gateway.Addr())
}

// runtimeStatus reports queue, cache and jury occupancy on the status
// endpoint.
func runtimeStatus(eb *bus.EventBus, authn *auth.Authenticator, judge *jury.Client) gateway.StatusFunc {
	return func() map[string]any {
		held, size := judge.InFlight()
		return map[string]any{
			"events_pending": eb.Pending(),
			"events_dropped": eb.Dropped(),
			"watchers":       eb.Watchers(),
			"auth_cache":     authn.Len(),
			"jury_in_flight": held,
			"jury_slots":     size,
		}
	}
}

// attachSinks subscribes the configured outbound sinks to the bus.
func attachSinks(cfg *config.Config, eb *bus.EventBus, fights *arena.Service) (func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("close sink", "error", err)
			}
		}
	}

	if k := cfg.Events.Kafka; k.Enabled {
		pub, err := events.NewKafkaPublisher(k.Brokers, k.Topic)
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
		eb.Subscribe("kafka", pub.Handle)
		closers = append(closers, pub.Close)
		slog.Info("kafka sink enabled", "topic", k.Topic)
	}

	if a := cfg.Archive; a.Enabled {
		s3, err := archive.NewS3Store(archive.S3Config{
			Endpoint:  a.Endpoint,
			Region:    a.Region,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			Bucket:    a.Bucket,
			UseSSL:    a.UseSSL,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("archive: %w", err)
		}
		eb.Subscribe("archive", archive.New(s3, fights).Handle)
		slog.Info("transcript archive enabled", "bucket", a.Bucket)
	}

	if s := cfg.Notify.Slack; s.Enabled {
		n, err := notify.NewSlackNotifier(s.WebhookURL, fights)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("slack: %w", err)
		}
		eb.Subscribe("slack", n.Handle)
		slog.Info("slack notifier enabled")
	}

	return closeAll, nil
}
