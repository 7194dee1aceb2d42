package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the pourline build",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentBuild()
			if jsonOutput {
				return renderJSON(cmd, info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pourline %s (%s) %s %s\n",
				info.Version, info.Commit, info.GoVersion, info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output build info as JSON")

	return cmd
}
