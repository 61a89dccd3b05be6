package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
)

// NewUnpairCmd creates the unpair command.
func NewUnpairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpair",
		Short: "Disconnect this device from your sync account",
		Long: `Invalidate this device's session on the backend and remove the local
credentials. Local data stays on disk; only the sync relationship is
severed. Re-pairing requires a fresh pairing code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpair(cmd.Context())
		},
	}
}

func runUnpair(ctx context.Context) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	err := container.Pairer().Unpair(ctx)
	if err != nil {
		if domainErrors.Is(err, domainErrors.ErrNotPaired) {
			formatter.Warning("This device is not paired.")
			return nil
		}
		return fmt.Errorf("unpair failed: %w", err)
	}

	formatter.Success("Device unpaired. Local data is untouched.")
	return nil
}
