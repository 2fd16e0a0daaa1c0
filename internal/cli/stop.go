package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the Haybot daemon",
		Long: `Stop the Haybot daemon gracefully.
Sends SIGTERM to the daemon and waits for it to shut down.`,
	}
	timeout := cmd.Flags().Int("timeout", 30, "timeout in seconds to wait for daemon to stop")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runStop(cmd, time.Duration(*timeout)*time.Second)
	}
	return cmd
}

func runStop(cmd *cobra.Command, timeout time.Duration) error {
	pf := resolvePIDFile()
	out := cmd.OutOrStdout()

	if !pf.Alive() {
		fmt.Fprintln(out, "Daemon is not running")
		return pf.Release()
	}

	pid, err := pf.Read()
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !pf.Alive() {
			fmt.Fprintln(out, "Daemon stopped successfully")
			return pf.Release()
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Fprintln(out, "Timeout reached, sending SIGKILL...")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	fmt.Fprintln(out, "Daemon killed")
	return pf.Release()
}
