package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newPackRefsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pack-refs",
		Short: "Pack the loose references into the packed-refs file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBackend(opts)
			if err != nil {
				return err
			}
			defer b.Close() //nolint:errcheck // nothing useful to do with the error

			logrus.Debug("compressing the reference database")
			if err = b.Compress(); err != nil {
				return err
			}
			logrus.Debug("loose references packed")
			return nil
		},
	}
}
