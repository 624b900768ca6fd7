package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWriteCmd(opts *options) *cobra.Command {
	var symbolic bool
	var force bool

	cmd := &cobra.Command{
		Use:   "write <name> <target>",
		Short: "Create or update a reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBackend(opts)
			if err != nil {
				return err
			}
			defer b.Close() //nolint:errcheck // nothing useful to do with the error

			ref, err := newReference(args[0], args[1], symbolic)
			if err != nil {
				return err
			}

			logrus.WithField("ref", ref.Name()).Debug("writing reference")
			if force {
				return b.WriteReference(ref)
			}
			return b.WriteReferenceSafe(ref)
		},
	}

	cmd.Flags().BoolVar(&symbolic, "symbolic", false, "the target is the name of another reference instead of an oid")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite the reference if it already exists")
	return cmd
}
