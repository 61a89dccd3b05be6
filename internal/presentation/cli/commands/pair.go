package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	"github.com/jbctechsolutions/daybook/internal/presentation/cli/output"
)

// NewPairCmd creates the pair command.
func NewPairCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "pair [code]",
		Short: "Pair this device with your sync account",
		Long: `Pair this device with your sync account using a pairing code.

Generate a code on an already signed-in device or in the web app, then
run this command within the code's validity window. The code may be
passed as an argument or entered interactively.`,
		Example: `  # Enter the code interactively
  daybook pair

  # Pass the code directly
  daybook pair ABC123 --label "work laptop"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) > 0 {
				code = args[0]
			}
			return runPair(cmd.Context(), code, label)
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "human-readable label for this device")

	return cmd
}

func runPair(ctx context.Context, code, label string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	if sess := container.Manager().Session(); sess != nil && sess.Paired {
		formatter.Warning("This device is already paired (device %s).", sess.DeviceID)
		formatter.Println("Run 'daybook unpair' first to pair with a different account.")
		return nil
	}

	if code == "" {
		entered, err := promptPairingCode()
		if err != nil {
			return err
		}
		code = entered
	}

	spinner := output.NewSpinner("Pairing device...",
		output.WithSpinnerColor(formatter.Format() != output.FormatJSON))
	spinner.Start()

	sess, err := container.Pairer().Pair(ctx, code, label)
	if err != nil {
		if domainErrors.Is(err, domainErrors.ErrInvalidCode) {
			spinner.StopWithError("Pairing code was rejected. Codes are single-use and expire quickly; generate a fresh one and try again.")
			return nil
		}
		spinner.StopWithError(fmt.Sprintf("Pairing failed: %v", err))
		return nil
	}

	spinner.StopWithSuccess(fmt.Sprintf("Device paired as %s.", sess.DeviceID))
	formatter.Println("Run 'daybook sync' to start synchronizing.")
	return nil
}

// promptPairingCode reads the code interactively, with echo, since
// pairing codes are short-lived and not secrets worth masking.
func promptPairingCode() (string, error) {
	rl, err := readline.New("Pairing code: ")
	if err != nil {
		return "", fmt.Errorf("failed to open prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return "", fmt.Errorf("pairing cancelled")
	}

	code := strings.TrimSpace(line)
	if code == "" {
		return "", fmt.Errorf("no pairing code entered")
	}
	return code, nil
}
