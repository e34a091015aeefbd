// CLI-only version (no GUI dependencies)
package main

import (
	"os"

	"tilescope/internal/cli"
)

func main() {
	os.Exit(cli.Main("tilescope-cli", os.Args[1:], os.Stdout, os.Stderr))
}
