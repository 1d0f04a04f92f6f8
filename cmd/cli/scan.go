package cli

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/astragrid/internal/application/dto"
)

// newScanCommand groups the scan lifecycle subcommands.
func newScanCommand(opts *clientOptions) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Submit, inspect and cancel scans",
	}
	scanCmd.AddCommand(
		newScanSubmitCommand(opts),
		newScanGetCommand(opts),
		newScanListCommand(opts),
		newScanCancelCommand(opts),
	)
	return scanCmd
}

func newScanSubmitCommand(opts *clientOptions) *cobra.Command {
	var (
		priority   string
		components []string
		wait       bool
	)
	cmd := &cobra.Command{
		Use:   "submit SECTOR",
		Short: "Queue a scan of a sector",
		Long: `Queue a scan of a sector and print its id. With --wait the scan runs to
completion and its summary is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.SubmitScanRequest{Sector: args[0], Priority: priority, ComponentIDs: components}
			path := "/api/v1/scans"
			if wait {
				path = "/api/v1/agents/execute"
			}
			data, err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "medium", "scan priority: low, medium or high")
	cmd.Flags().StringSliceVar(&components, "component", nil, "component id to scan (repeatable); default is every component of the sector")
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the scan finishes")
	return cmd
}

func newScanGetCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get SCAN_ID",
		Short: "Show the current state of a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/scans/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newScanListCommand(opts *clientOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live and archived scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/scans"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			data, err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of scans to show (0 = all)")
	return cmd
}

func newScanCancelCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel SCAN_ID",
		Short: "Cancel a running scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).do(cmd.Context(), http.MethodDelete, "/api/v1/scans/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}
