// Package cmd wires the linglide CLI's command tree: server start (the
// long-running capture/encode/transport pipeline), pair/devices for
// out-of-band device management, and cert for certificate inspection.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BeckhamLabsLLC/linglide/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "linglide",
	Short: "Use a mobile device as an extended, touch-capable Linux display",
	Long: `linglide streams a virtual display over HTTPS as H.264/fMP4 and injects
the viewing device's touch, pen, and pointer input back into the host via
virtual uinput devices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("version").Changed {
			info := version.ClientInfo()
			fmt.Printf("linglide version %s, build %s\n", info["Version"], info["GitCommit"])
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")

	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newPairCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newCertCmd())
	rootCmd.AddCommand(NewVersionCommand())
}
