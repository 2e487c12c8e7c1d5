// cronhostctl is the operator CLI for a running cronhostd gateway: every
// subcommand is a thin wrapper over one REST call.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var (
		serverURL string
		authToken string
		timeout   time.Duration
	)

	root := &cobra.Command{
		Use:   "cronhostctl",
		Short: "control a cronhostd gateway",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("CRONHOSTCTL_SERVER", "http://localhost:8090"), "cronhostd base URL")
	root.PersistentFlags().StringVar(&authToken, "token", os.Getenv("AUTH_TOKEN"), "shared secret cronhostd was started with")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	newClient := func() *APIClient {
		return NewAPIClient(serverURL, authToken, timeout)
	}

	root.AddCommand(
		newJobCmd(newClient),
		newRunCmd(newClient),
		newStatusCmd(newClient),
		newEventsCmd(newClient),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
