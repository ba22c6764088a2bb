package cmd

import (
	"fmt"
	"text/tabwriter"

	"os"

	"github.com/spf13/cobra"

	"github.com/BeckhamLabsLLC/linglide/internal/auth"
)

func newDevicesCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List or revoke paired devices",
	}
	cmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "Server port (defaults to the configured port)")

	cmd.AddCommand(newDevicesListCmd(&port))
	cmd.AddCommand(newDevicesRevokeCmd(&port))
	return cmd
}

func newDevicesListCmd(port *int) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every currently paired device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevicesList(*port)
		},
	}
}

func newDevicesRevokeCmd(port *int) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <device-id>",
		Short: "Revoke a paired device by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevicesRevoke(*port, args[0])
		},
	}
}

func runDevicesList(port int) error {
	client := newAPIClient(port)

	var resp struct {
		Devices []auth.Info `json:"devices"`
	}
	if err := client.getJSON("/api/devices", &resp); err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	if len(resp.Devices) == 0 {
		fmt.Println("No paired devices.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPAIRED AT\tLAST SEEN")
	for _, d := range resp.Devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Kind,
			d.PairedAt.Local().Format("2006-01-02 15:04:05"),
			d.LastSeen.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runDevicesRevoke(port int, deviceID string) error {
	client := newAPIClient(port)
	if err := client.delete("/api/devices/" + deviceID); err != nil {
		return fmt.Errorf("revoke device: %w", err)
	}
	fmt.Printf("Revoked device %s\n", deviceID)
	return nil
}
