package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/emergent-company/kevinbacon/internal/version"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Info()
			return a.printer(cmd).print(info,
				[]string{"VERSION", "COMMIT", "BUILT", "GO", "OS/ARCH"},
				[][]string{{info.Version, info.GitCommit, info.BuildTime, runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH}})
		},
	}
}
