package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/islandport/actuator/internal/api"
	"github.com/islandport/actuator/internal/observability"
)

var (
	serveAddr      string
	serveMetrics   bool
	serveDebugLogs bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the debug API backed by a simulated actuator",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8088", "address to listen on")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true, "mount the /metrics Prometheus endpoint")
	serveCmd.Flags().BoolVar(&serveDebugLogs, "debug", false, "enable debug-level logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := loadRoot(cfgFile)
	if err != nil {
		return err
	}
	eng := buildLoop(root)

	logger := observability.NewLogger(serveDebugLogs)

	srv := api.NewServer(eng.Loop)
	srv.SetTracer(eng.Tracer)
	if serveMetrics {
		srv.EnableMetrics(eng.Registry)
	}

	logger.Info("starting debug API", "addr", serveAddr, "metrics", serveMetrics)
	fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", serveAddr)
	return http.ListenAndServe(serveAddr, srv.Handler())
}
