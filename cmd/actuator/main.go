// Command actuator is the CLI front-end for the predictive actuation engine:
// replaying traces, inspecting configuration, and serving the debug API.
package main

import (
	"fmt"
	"os"

	"github.com/islandport/actuator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
