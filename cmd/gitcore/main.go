// Command gitcore installs, upgrades and operates the Git-Core Protocol in
// a repository.
package main

import (
	"os"

	"github.com/iberi22/gitcore/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.DefaultEnv())
	if err := root.Execute(); err != nil {
		// Commands render their own errors; cobra prints usage errors.
		os.Exit(cli.GetExitCode(err))
	}
}
