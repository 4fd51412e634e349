package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/querydesk/querydesk/internal/metrics"
	"github.com/querydesk/querydesk/pkg/resolution"
)

var sweepSchedule string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the resolver on a schedule",
	Long: `Start a foreground service that periodically processes all open tickets.
The schedule comes from the sweeper.schedule config entry unless
overridden with --schedule. Stop with Ctrl-C.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepSchedule, "schedule", "", "cron expression override, e.g. '*/15 * * * *'")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.New()

	resolver, err := resolution.New(resolution.Config{
		Store:     a.store,
		Directory: a.store,
		Notifier:  a.notifier,
		Tokens:    a.tokens,
		Provider:  a.provider,
		Model:     a.cfg.AI.Model,
		BaseURL:   a.cfg.Approval.BaseURL,
		Logger:    a.log.Zerolog(),
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	schedule := sweepSchedule
	if schedule == "" {
		schedule = a.cfg.Sweeper.Schedule
	}

	sweeper, err := resolution.NewSweeper(resolver, schedule, a.log.Zerolog())
	if err != nil {
		return err
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lg := a.log.Zerolog()
				lg.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
			}
		}()
		defer srv.Close()
	}

	sweeper.Start()
	fmt.Printf("Sweeping open tickets on schedule %q. Press Ctrl-C to stop.\n", schedule)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	sweeper.Stop()
	return nil
}
