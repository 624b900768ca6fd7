package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options contains the repository-wide flags shared by all the
// subcommands
type options struct {
	GitDir    string // Defaults to $GIT_DIR, then .git
	Namespace string // Maps to $GIT_NAMESPACE
	Verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "git-refs",
		Short:         "inspect and maintain the reference database of a git repository",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.GitDir, "git-dir", "", "path of the .git directory (defaults to $GIT_DIR, then .git)")
	cmd.PersistentFlags().StringVar(&opts.Namespace, "namespace", "", "refs namespace to operate in, see gitnamespaces(7) (defaults to $GIT_NAMESPACE)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print debug information")

	cmd.AddCommand(newShowRefCmd(opts))
	cmd.AddCommand(newPackRefsCmd(opts))
	cmd.AddCommand(newWriteCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newRenameCmd(opts))

	return cmd
}
