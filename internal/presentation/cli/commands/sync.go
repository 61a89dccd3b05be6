package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/config"
	"github.com/jbctechsolutions/daybook/internal/presentation/cli/output"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the sync engine in the foreground",
		Long: `Connect to the coordination backend and keep local data synchronized
until interrupted.

The engine maintains a duplex connection, applies incoming events to
the local database, and pushes local snapshots after changes. Dropped
connections are retried with exponential backoff; a rejected session
token is recovered silently when possible.`,
		Example: `  # Sync until Ctrl-C
  daybook sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context())
		},
	}
}

func runSync(ctx context.Context) error {
	formatter := GetFormatter()
	container := GetContainer()
	appContext := GetAppContext()
	if container == nil || appContext == nil {
		return fmt.Errorf("application not initialized")
	}

	sess := container.Manager().Session()
	if sess == nil || !sess.Paired {
		formatter.Warning("This device is not paired.")
		formatter.Println("Run 'daybook pair' first.")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Watch the config file so log level changes apply live.
	loader, err := config.NewLoader("")
	if err == nil {
		if werr := container.StartConfigWatcher(runCtx, loader, appContext.ConfigPath); werr != nil && globalFlags.Verbose {
			formatter.Warning("Config hot reload unavailable: %v", werr)
		}
	}

	if err := container.StartSync(runCtx); err != nil {
		return fmt.Errorf("failed to start sync engine: %w", err)
	}

	formatter.Info("Sync engine running for device %s. Press Ctrl-C to stop.", sess.DeviceID)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-runCtx.Done():
	}

	formatter.Println("Stopping...")
	container.StopSync()
	formatter.Success("Sync engine stopped.")
	return nil
}

// cliSignals renders engine signals for a foreground sync run.
type cliSignals struct {
	formatter *output.Formatter
}

func newCLISignals(formatter *output.Formatter) *cliSignals {
	return &cliSignals{formatter: formatter}
}

func (s *cliSignals) ConnectionStateChanged(state dsync.ConnectionState) {
	switch state {
	case dsync.StateConnected:
		s.formatter.Success("Connected.")
	case dsync.StateConnecting:
		s.formatter.Println("%s", s.formatter.Dim("Connecting..."))
	case dsync.StateRecovering:
		s.formatter.Println("%s", s.formatter.Dim("Refreshing session..."))
	case dsync.StateDisconnected:
		s.formatter.Println("%s", s.formatter.Dim("Disconnected."))
	}
}

func (s *cliSignals) SessionRecovered() {
	s.formatter.Info("Session refreshed.")
}

func (s *cliSignals) SessionExpired(recoverable bool) {
	if recoverable {
		s.formatter.Warning("Session expired; will retry.")
		return
	}
	s.formatter.Error("Session expired and could not be recovered. Run 'daybook pair' to reconnect this device.")
}

func (s *cliSignals) ReconnectExhausted() {
	s.formatter.Warning("Backend unreachable after repeated attempts. Sync is paused; restart 'daybook sync' to retry.")
}

func (s *cliSignals) DataChanged() {
	// Quiet by default; per-event detail lives in the debug log.
}
