package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/BeckhamLabsLLC/linglide/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var outputFormat string
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flag("version").Changed {
				short = true
			}
			return runVersion(outputFormat, short)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputFormat, "output", "o", "text", "Output format (json or text)")
	flags.BoolVarP(&short, "version", "v", false, "Print only the version number")

	return cmd
}

func runVersion(outputFormat string, short bool) error {
	info := version.ClientInfo()

	if short {
		fmt.Printf("linglide version %s, build %s\n", info["Version"], info["GitCommit"])
		return nil
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format version as JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	const tmplText = `linglide:
 Version:           {{.Version}}
 API version:       {{.APIVersion}}
 Go version:        {{.GoVersion}}
 Git commit:        {{.GitCommit}}
 Built:             {{.FormattedTime}}
 OS/Arch:           {{.OS}}/{{.Arch}}
`
	tmpl, err := template.New("version").Parse(tmplText)
	if err != nil {
		return fmt.Errorf("failed to parse version template: %w", err)
	}
	return tmpl.Execute(os.Stdout, info)
}
