package main

import (
	"fmt"

	"github.com/goabstract/refdb/ginternals"
	"github.com/spf13/cobra"
)

func newShowRefCmd(opts *options) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "show-ref",
		Short: "List the references of the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBackend(opts)
			if err != nil {
				return err
			}
			defer b.Close() //nolint:errcheck // nothing useful to do with the error

			return b.WalkReferences(pattern, func(ref *ginternals.Reference) error {
				if ref.Type() == ginternals.SymbolicReference {
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s%s %s\n", ginternals.SymrefPrefix, ref.SymbolicTarget(), ref.Name())
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ref.Target().String(), ref.Name())
				return err
			})
		},
	}

	cmd.Flags().StringVar(&pattern, "glob", "", "only list references matching the given glob pattern")
	return cmd
}
