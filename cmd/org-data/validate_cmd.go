package main

import (
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a tree or roster file offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := loadTree(file)
			if err != nil {
				return err
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{
				"status":    "ok",
				"file":      file,
				"root_id":   root.ID,
				"employees": root.Size(),
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "tree or roster file (.json, .yaml, .yml, .toml)")
	return cmd
}
