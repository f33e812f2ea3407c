package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"
)

func newDiffCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the JSON Patch that turns one tree into another",
		Long:  "Prints an RFC 6902 patch that PATCH /employees accepts.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				return withCode(exitUsage, errors.New("--from and --to are required"))
			}
			src, err := loadTree(from)
			if err != nil {
				return err
			}
			dst, err := loadTree(to)
			if err != nil {
				return err
			}
			a, err := marshalTree(src)
			if err != nil {
				return err
			}
			b, err := marshalTree(dst)
			if err != nil {
				return err
			}
			patch, err := jsondiff.CompareJSON(a, b)
			if err != nil {
				return withCode(exitValidation, errors.Wrap(err, "compare trees"))
			}
			if patch == nil {
				patch = jsondiff.Patch{}
			}
			return writeJSONLine(cmd.OutOrStdout(), patch)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source tree file")
	cmd.Flags().StringVar(&to, "to", "", "target tree file")
	return cmd
}
