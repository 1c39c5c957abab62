package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "actuator",
	Short: "Predictive actuation engine CLI",
	Long: `actuator drives the predictive actuation engine outside of an
embedding host: replaying recorded pointer traces, inspecting resolved
configuration, and serving the debug API backed by a simulated actuator.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file (defaults to built-in defaults)")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command. Called once from cmd/actuator/main.go.
func Execute() error {
	return rootCmd.Execute()
}
