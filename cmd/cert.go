package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BeckhamLabsLLC/linglide/config"
	"github.com/BeckhamLabsLLC/linglide/internal/certs"
)

// newCertCmd reports the server's current self-signed certificate
// fingerprint, the same value a client pins during pairing, for an operator
// to confirm out of band (e.g. reading it aloud over a phone call).
func newCertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Inspect the server's TLS certificate",
	}
	cmd.AddCommand(newCertFingerprintCmd())
	return cmd
}

func newCertFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the current certificate fingerprint, generating one if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCertFingerprint()
		},
	}
}

func runCertFingerprint() error {
	manager, err := certs.NewManager(config.GetHome())
	if err != nil {
		return fmt.Errorf("create certificate manager: %w", err)
	}

	if fp, ok := manager.Fingerprint(); ok {
		fmt.Println(fp)
		return nil
	}

	bundle, err := manager.LoadOrGenerate([]string{"localhost"})
	if err != nil {
		return fmt.Errorf("generate certificate: %w", err)
	}
	fmt.Println(bundle.Fingerprint)
	return nil
}
