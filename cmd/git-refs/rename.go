package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRenameCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Rename a reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBackend(opts)
			if err != nil {
				return err
			}
			defer b.Close() //nolint:errcheck // nothing useful to do with the error

			logrus.WithFields(logrus.Fields{
				"from": args[0],
				"to":   args[1],
			}).Debug("renaming reference")
			_, err = b.RenameReference(args[0], args[1], force)
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite the destination if it already exists")
	return cmd
}
