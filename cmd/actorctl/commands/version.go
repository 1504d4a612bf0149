package commands

import (
	"fmt"

	"github.com/latticeforge/actorcore/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit hash, and build metadata for actorctl.`,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("actorctl version %s", build.Version)

	if build.Commit != "" {
		fmt.Printf(" commit=%s", build.Commit)
	}
	fmt.Printf(" go=%s\n", build.GoVersion)
}
