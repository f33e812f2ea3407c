package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		baseURL string
		file    string
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the live tree with the contents of a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := loadTree(file)
			if err != nil {
				return err
			}
			if dryRun {
				return writeJSONLine(cmd.OutOrStdout(), map[string]any{
					"status":    "dry_run",
					"file":      file,
					"employees": root.Size(),
				})
			}

			client, err := newOrgAPIClient(baseURL, timeout)
			if err != nil {
				return err
			}
			body, err := marshalTree(root)
			if err != nil {
				return err
			}
			if _, _, err := client.do(cmd.Context(), http.MethodPost, "/update-manager", nil, body); err != nil {
				return err
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{
				"status":    "imported",
				"file":      file,
				"employees": root.Size(),
			})
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", defaultBaseURL, "server base URL")
	cmd.Flags().StringVar(&file, "file", "", "tree or roster file (.json, .yaml, .yml, .toml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, do not contact the server")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")
	return cmd
}
