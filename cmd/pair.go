package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BeckhamLabsLLC/linglide/internal/auth"
)

// newPairCmd asks a running server to open a new pairing session, the same
// request a mobile client makes through /api/pair/start.
func newPairCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Start a new pairing session against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPair(port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Server port (defaults to the configured port)")
	return cmd
}

func runPair(port int) error {
	client := newAPIClient(port)

	var resp auth.StartResponse
	if err := client.postJSON("/api/pair/start", nil, &resp); err != nil {
		return fmt.Errorf("start pairing: %w", err)
	}

	printPairingBanner(client.baseURL, resp)
	return nil
}
