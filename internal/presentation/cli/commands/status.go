package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/presentation/cli/output"
)

// SyncStatus represents the sync engine status for display.
type SyncStatus struct {
	Paired       bool   `json:"paired"`
	DeviceID     string `json:"device_id,omitempty"`
	State        string `json:"state"`
	TokenExpires string `json:"token_expires,omitempty"`
	BackendURL   string `json:"backend_url"`
	DataDir      string `json:"data_dir"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pairing and connection status",
		Long: `Display the device's pairing state, the connection state of the sync
engine, and where local data lives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	cfg := container.Config()
	state := container.Manager().State()

	// The engine is not running inside this command; read the persisted
	// session directly.
	sess, err := container.SessionStore().Load()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	status := SyncStatus{
		Paired:     sess != nil && sess.Paired,
		State:      state.String(),
		BackendURL: cfg.Sync.BackendURL,
		DataDir:    cfg.DataDir,
	}
	if sess != nil {
		status.DeviceID = sess.DeviceID
		if !sess.ExpiresAt.IsZero() {
			status.TokenExpires = sess.ExpiresAt.Format(time.RFC3339)
		}
	}

	if formatter.Format() != output.FormatText {
		return formatter.FormatAuto(status, statusTable(status))
	}

	formatter.Header("Sync Status")
	if status.Paired {
		formatter.Item("Paired", output.SuccessTextIfEnabled("yes"))
		formatter.Item("Device", status.DeviceID)
		if status.TokenExpires != "" {
			formatter.Item("Token expires", status.TokenExpires)
		}
	} else {
		formatter.Item("Paired", output.WarningTextIfEnabled("no"))
	}
	formatter.Item("Connection", colorState(state))
	formatter.Item("Backend", status.BackendURL)
	formatter.Item("Data dir", status.DataDir)

	if !status.Paired {
		formatter.Println("")
		formatter.Println("Run 'daybook pair' to connect this device to your account.")
	} else if sess.Expired(time.Now()) {
		formatter.Println("")
		formatter.Println(output.WarningTextIfEnabled(
			"Session token has expired. The engine will try to recover it on the\n" +
				"next 'daybook sync'; if recovery fails, re-pair with 'daybook pair'."))
	}
	return nil
}

// statusTable lays the status out as field/value rows for table output.
func statusTable(status SyncStatus) *output.TableData {
	rows := [][]string{
		{"paired", fmt.Sprintf("%t", status.Paired)},
		{"state", status.State},
		{"backend", status.BackendURL},
		{"data dir", status.DataDir},
	}
	if status.DeviceID != "" {
		rows = append(rows, []string{"device", status.DeviceID})
	}
	if status.TokenExpires != "" {
		rows = append(rows, []string{"token expires", status.TokenExpires})
	}
	return &output.TableData{
		Columns: []output.TableColumn{
			{Header: "Field"},
			{Header: "Value"},
		},
		Rows: rows,
	}
}

func colorState(state dsync.ConnectionState) string {
	switch state {
	case dsync.StateConnected:
		return output.SuccessTextIfEnabled(state.String())
	case dsync.StateConnecting, dsync.StateRecovering:
		return output.WarningTextIfEnabled(state.String())
	default:
		return output.ErrorTextIfEnabled(state.String())
	}
}
