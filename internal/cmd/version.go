package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the bffagent version. --extended adds the commit, build date, Go toolchain and gofulmen/crucible versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if identity := GetAppIdentity(); identity != nil {
			name = identity.BinaryName
		}
		writeVersion(cmd.OutOrStdout(), name, extended)
		return nil
	},
}

func writeVersion(w io.Writer, binaryName string, extended bool) {
	if binaryName == "" {
		binaryName = "bffagent"
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", binaryName, versionInfo.Version)
	if !extended {
		return
	}

	libs := crucible.GetVersion()
	_, _ = fmt.Fprintf(w, "Commit:   %s\n", versionInfo.Commit)
	_, _ = fmt.Fprintf(w, "Built:    %s\n", versionInfo.BuildDate)
	_, _ = fmt.Fprintf(w, "Go:       %s\n", runtime.Version())
	_, _ = fmt.Fprintf(w, "Gofulmen: %s\n", libs.Gofulmen)
	_, _ = fmt.Fprintf(w, "Crucible: %s\n", libs.Crucible)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
