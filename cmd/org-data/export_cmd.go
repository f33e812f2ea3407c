package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
)

func newExportCmd() *cobra.Command {
	var (
		baseURL string
		output  string
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the live tree from the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(output) == "" {
				return withCode(exitUsage, errors.New("--output is required"))
			}
			client, err := newOrgAPIClient(baseURL, timeout)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				body, _, err := client.do(cmd.Context(), http.MethodGet, "/employees", nil, nil)
				if err != nil {
					return err
				}
				var node orgtree.Node
				if err := json.Unmarshal(body, &node); err != nil {
					return withCode(exitRemote, errors.Wrap(err, "decode tree"))
				}
				root, err := orgtree.FromNode(&node)
				if err != nil {
					return withCode(exitValidation, errors.Wrap(err, "server returned an invalid tree"))
				}
				b, err := marshalTree(root)
				if err != nil {
					return err
				}
				if err := writeFile(output, append(b, '\n')); err != nil {
					return err
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]any{
					"status":    "exported",
					"output":    output,
					"employees": root.Size(),
				})
			case "csv", "xlsx":
				q := url.Values{}
				q.Set("format", format)
				body, _, err := client.do(cmd.Context(), http.MethodGet, "/employees/export", q, nil)
				if err != nil {
					return err
				}
				if err := writeFile(output, body); err != nil {
					return err
				}
				return writeJSONLine(cmd.OutOrStdout(), map[string]any{
					"status": "exported",
					"output": output,
					"bytes":  len(body),
				})
			default:
				return withCode(exitUsage, errors.Errorf("unsupported --format %q (json, csv, xlsx)", format))
			}
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", defaultBaseURL, "server base URL")
	cmd.Flags().StringVar(&output, "output", "", "output file")
	cmd.Flags().StringVar(&format, "format", "json", "json, csv or xlsx")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")
	return cmd
}
