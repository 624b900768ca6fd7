package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a reference from both the loose and packed stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBackend(opts)
			if err != nil {
				return err
			}
			defer b.Close() //nolint:errcheck // nothing useful to do with the error

			logrus.WithField("ref", args[0]).Debug("deleting reference")
			return b.DeleteReference(args[0])
		},
	}
}
