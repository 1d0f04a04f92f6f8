// Package cli implements gridctl, the operator command line for the pipeline service.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the gridctl command tree.
// NewRootCommand 构建 gridctl 命令树。
func NewRootCommand() *cobra.Command {
	opts := &clientOptions{}
	root := &cobra.Command{
		Use:   "gridctl",
		Short: "A CLI tool for operating the Astra-Grid inspection pipeline.",
		Long: `gridctl talks to a running Astra-Grid server to submit and track scans,
cancel running workflows and list the compliance standards in force.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("ASTRAGRID_SERVER", "http://localhost:8000"), "Astra-Grid server base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().IntVar(&opts.retries, "retries", 2, "retries on transient failures")

	root.AddCommand(newScanCommand(opts), newStandardsCommand(opts))
	return root
}

// Execute is the main entry point for the CLI application.
// If an error occurs, it prints the error and exits.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
