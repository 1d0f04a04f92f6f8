package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

// newStandardsCommand lists the compliance standards the server audits against.
func newStandardsCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "standards",
		Short: "List the compliance standards in force",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/compliance/standards", nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}
